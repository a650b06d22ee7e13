package wire

import "google.golang.org/protobuf/encoding/protowire"

// EncodeDetails builds a details response envelope. The fake catalog backend
// in test/testutil serves these.
func EncodeDetails(d Details) []byte {
	var app []byte
	if d.VersionCode != 0 {
		app = appendVarint(app, appVersionCode, uint64(d.VersionCode))
	}
	app = appendString(app, appVersionString, d.VersionString)

	var doc []byte
	doc = appendString(doc, docID, d.DocID)
	doc = appendString(doc, docTitle, d.Title)
	doc = appendMessage(doc, docDetails, appendMessage(nil, documentDetailsAppDetails, app))

	payload := appendMessage(nil, payloadDetailsResponse, appendMessage(nil, detailsDocV2, doc))
	return wrap(payload, d.ServerMessage)
}

// EncodeDelivery builds a delivery response envelope.
func EncodeDelivery(d Delivery) []byte {
	var data []byte
	if d.DownloadSize != 0 {
		data = appendVarint(data, dataDownloadSize, uint64(d.DownloadSize))
	}
	data = appendString(data, dataDownloadURL, d.DownloadURL)
	for _, c := range d.Cookies {
		var cb []byte
		cb = appendString(cb, cookieName, c.Name)
		cb = appendString(cb, cookieValue, c.Value)
		data = appendMessage(data, dataAuthCookie, cb)
	}
	for _, s := range d.Splits {
		var sb []byte
		sb = appendString(sb, splitName, s.Name)
		if s.DownloadSize != 0 {
			sb = appendVarint(sb, splitDownloadSize, uint64(s.DownloadSize))
		}
		sb = appendString(sb, splitDownloadURL, s.DownloadURL)
		data = appendMessage(data, dataSplit, sb)
	}

	var resp []byte
	if d.Status != 0 {
		resp = appendVarint(resp, deliveryStatus, uint64(d.Status))
	}
	resp = appendMessage(resp, deliveryAppDeliveryData, data)

	return wrap(appendMessage(nil, payloadDeliveryResponse, resp), d.ServerMessage)
}

func wrap(payload []byte, message string) []byte {
	out := appendMessage(nil, wrapperPayload, payload)
	if message != "" {
		out = appendMessage(out, wrapperCommands, appendString(nil, commandsDisplayErrorMessage, message))
	}
	return out
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Package wire decodes the length-prefixed response envelope returned by the
// catalog details and delivery endpoints. Only the fields the resolver needs
// are read; everything else is skipped.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the response envelope.
const (
	wrapperPayload  protowire.Number = 1
	wrapperCommands protowire.Number = 2

	commandsDisplayErrorMessage protowire.Number = 2

	payloadDetailsResponse  protowire.Number = 2
	payloadDeliveryResponse protowire.Number = 21

	detailsDocV2 protowire.Number = 4

	docID      protowire.Number = 1
	docTitle   protowire.Number = 5
	docDetails protowire.Number = 13

	documentDetailsAppDetails protowire.Number = 1

	appVersionCode   protowire.Number = 3
	appVersionString protowire.Number = 4

	deliveryStatus          protowire.Number = 1
	deliveryAppDeliveryData protowire.Number = 2

	dataDownloadSize protowire.Number = 1
	dataDownloadURL  protowire.Number = 3
	dataAuthCookie   protowire.Number = 5
	dataSplit        protowire.Number = 15

	cookieName  protowire.Number = 1
	cookieValue protowire.Number = 2

	splitName         protowire.Number = 1
	splitDownloadSize protowire.Number = 2
	splitDownloadURL  protowire.Number = 5
)

// ErrMalformed is returned for bytes that are not a valid envelope.
var ErrMalformed = fmt.Errorf("malformed response envelope")

// Details is the decoded details response.
type Details struct {
	DocID         string
	Title         string
	VersionCode   int64
	VersionString string
	ServerMessage string
}

// Cookie is a delivery session cookie.
type Cookie struct {
	Name  string
	Value string
}

// Split is a secondary artifact of a delivery response.
type Split struct {
	Name         string
	DownloadSize int64
	DownloadURL  string
}

// Delivery is the decoded delivery response.
type Delivery struct {
	Status        int32
	DownloadSize  int64
	DownloadURL   string
	Cookies       []Cookie
	Splits        []Split
	ServerMessage string
}

type fieldFunc func(num protowire.Number, typ protowire.Type, raw []byte, val uint64) error

// walk calls fn for every field of a message. raw is set for length-delimited
// fields, val for varints; other wire types are skipped.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(m))
			}
			if err := fn(num, typ, v, 0); err != nil {
				return err
			}
			b = b[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(m))
			}
			if err := fn(num, typ, nil, v); err != nil {
				return err
			}
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return nil
}

// nested returns a fieldFunc that descends into the length-delimited field
// want with inner.
func nested(want protowire.Number, inner fieldFunc) fieldFunc {
	return func(num protowire.Number, typ protowire.Type, raw []byte, _ uint64) error {
		if num != want || typ != protowire.BytesType {
			return nil
		}
		return walk(raw, inner)
	}
}

// envelope walks the wrapper, handing the payload to payload and collecting
// the server display message.
func envelope(b []byte, payload fieldFunc, message *string) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, raw []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case wrapperPayload:
			return walk(raw, payload)
		case wrapperCommands:
			return walk(raw, func(n protowire.Number, t protowire.Type, r []byte, _ uint64) error {
				if n == commandsDisplayErrorMessage && t == protowire.BytesType {
					*message = string(r)
				}
				return nil
			})
		}
		return nil
	})
}

// DecodeDetails decodes a details response envelope.
func DecodeDetails(b []byte) (*Details, error) {
	d := &Details{}

	app := func(num protowire.Number, typ protowire.Type, raw []byte, val uint64) error {
		switch {
		case num == appVersionCode && typ == protowire.VarintType:
			d.VersionCode = int64(val)
		case num == appVersionString && typ == protowire.BytesType:
			d.VersionString = string(raw)
		}
		return nil
	}
	doc := func(num protowire.Number, typ protowire.Type, raw []byte, val uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case docID:
			d.DocID = string(raw)
		case docTitle:
			d.Title = string(raw)
		case docDetails:
			return walk(raw, nested(documentDetailsAppDetails, app))
		}
		return nil
	}
	payload := nested(payloadDetailsResponse, nested(detailsDocV2, doc))

	if err := envelope(b, payload, &d.ServerMessage); err != nil {
		return nil, err
	}
	return d, nil
}

// DecodeDelivery decodes a delivery response envelope.
func DecodeDelivery(b []byte) (*Delivery, error) {
	d := &Delivery{}

	data := func(num protowire.Number, typ protowire.Type, raw []byte, val uint64) error {
		switch {
		case num == dataDownloadSize && typ == protowire.VarintType:
			d.DownloadSize = int64(val)
		case num == dataDownloadURL && typ == protowire.BytesType:
			d.DownloadURL = string(raw)
		case num == dataAuthCookie && typ == protowire.BytesType:
			var c Cookie
			if err := walk(raw, func(n protowire.Number, t protowire.Type, r []byte, _ uint64) error {
				if t != protowire.BytesType {
					return nil
				}
				switch n {
				case cookieName:
					c.Name = string(r)
				case cookieValue:
					c.Value = string(r)
				}
				return nil
			}); err != nil {
				return err
			}
			d.Cookies = append(d.Cookies, c)
		case num == dataSplit && typ == protowire.BytesType:
			var s Split
			if err := walk(raw, func(n protowire.Number, t protowire.Type, r []byte, v uint64) error {
				switch {
				case n == splitName && t == protowire.BytesType:
					s.Name = string(r)
				case n == splitDownloadSize && t == protowire.VarintType:
					s.DownloadSize = int64(v)
				case n == splitDownloadURL && t == protowire.BytesType:
					s.DownloadURL = string(r)
				}
				return nil
			}); err != nil {
				return err
			}
			d.Splits = append(d.Splits, s)
		}
		return nil
	}
	response := func(num protowire.Number, typ protowire.Type, raw []byte, val uint64) error {
		switch {
		case num == deliveryStatus && typ == protowire.VarintType:
			d.Status = int32(val)
		case num == deliveryAppDeliveryData && typ == protowire.BytesType:
			return walk(raw, data)
		}
		return nil
	}
	payload := nested(payloadDeliveryResponse, response)

	if err := envelope(b, payload, &d.ServerMessage); err != nil {
		return nil, err
	}
	return d, nil
}

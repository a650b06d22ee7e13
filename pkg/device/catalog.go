package device

import "github.com/glorpus-work/apkfetch/pkg/platform"

// Default catalog keys used when a caller passes an unknown device or region.
const (
	DefaultDevice = platform.ABIArm64
	DefaultRegion = "il"
)

// baseline holds properties shared by every hardware profile. Hardware
// definitions may override any of them.
var baseline = []Property{
	{"Build.RADIO", "unknown"},
	{"TouchScreen", "3"},
	{"Keyboard", "1"},
	{"Navigation", "1"},
	{"ScreenLayout", "2"},
	{"HasHardKeyboard", "false"},
	{"HasFiveWayNavigation", "false"},
	{"GL.Extensions", "GL_OES_EGL_image"},
	{"Client", "android-google"},
}

var hardware = map[string]Hardware{
	platform.ABIArm64: {
		Key:  platform.ABIArm64,
		Name: "Samsung Galaxy S23",
		ABIs: []string{platform.ABIArm64, platform.ABIArmV7, platform.ABIArm},
		Properties: []Property{
			{"Build.HARDWARE", "kalama"},
			{"Build.FINGERPRINT", "samsung/kalama/kalama:14/UP1A.231005.007/S911BXXU3BWK5:user/release-keys"},
			{"Build.BRAND", "samsung"},
			{"Build.DEVICE", "kalama"},
			{"Build.VERSION.SDK_INT", "34"},
			{"Build.VERSION.RELEASE", "14"},
			{"Build.MODEL", "SM-S911B"},
			{"Build.MANUFACTURER", "samsung"},
			{"Build.PRODUCT", "kalama"},
			{"Build.ID", "UP1A.231005.007"},
			{"Build.BOOTLOADER", "S911BXXU3BWK5"},
			{"Screen.Density", "480"},
			{"Screen.Width", "1080"},
			{"Screen.Height", "2340"},
			{"Features", "android.hardware.sensor.proximity,android.hardware.touchscreen,android.hardware.wifi,android.hardware.camera,android.hardware.bluetooth,android.hardware.nfc,android.hardware.location.gps"},
			{"SharedLibraries", "android.ext.shared,org.apache.http.legacy,com.google.android.camera"},
			{"GL.Version", "196610"},
			{"GSF.version", "223616055"},
			{"Vending.version", "84122900"},
			{"Vending.versionString", "41.2.29-23 [0] [PR] 639844241"},
		},
	},
	platform.ABIArmV7: {
		Key:  platform.ABIArmV7,
		Name: "Samsung Galaxy J7",
		ABIs: []string{platform.ABIArmV7, platform.ABIArm},
		Properties: []Property{
			{"Build.HARDWARE", "samsungexynos7870"},
			{"Build.FINGERPRINT", "samsung/j7xeltexx/j7xelte:8.1.0/M1AJQ/J710FXXU6CSH1:user/release-keys"},
			{"Build.BRAND", "samsung"},
			{"Build.DEVICE", "j7xelte"},
			{"Build.VERSION.SDK_INT", "27"},
			{"Build.VERSION.RELEASE", "8.1.0"},
			{"Build.MODEL", "SM-J710F"},
			{"Build.MANUFACTURER", "samsung"},
			{"Build.PRODUCT", "j7xeltexx"},
			{"Build.ID", "M1AJQ"},
			{"Build.BOOTLOADER", "J710FXXU6CSH1"},
			{"Screen.Density", "320"},
			{"Screen.Width", "720"},
			{"Screen.Height", "1280"},
			{"Features", "android.hardware.sensor.proximity,android.hardware.touchscreen,android.hardware.wifi,android.hardware.camera,android.hardware.bluetooth"},
			{"SharedLibraries", "android.ext.shared,org.apache.http.legacy"},
			{"GL.Version", "196609"},
			{"GSF.version", "203615037"},
			{"Vending.version", "82041300"},
			{"Vending.versionString", "20.4.13-all [0] [PR] 312295870"},
		},
	},
}

var regions = map[string]Region{
	"il": {
		Key:          "il",
		Country:      "IL",
		Language:     "he_IL",
		TimeZone:     "Asia/Jerusalem",
		SimOperator:  "42501", // Partner Israel
		CellOperator: "42501",
	},
	"us": {
		Key:          "us",
		Country:      "US",
		Language:     "en_US",
		TimeZone:     "America/New_York",
		SimOperator:  "310260", // T-Mobile US
		CellOperator: "310260",
	},
}

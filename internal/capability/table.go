package capability

// The capability table maps the hub's vendor device-type codes to
// normalized schemas. The codes and property layouts follow the vendor's
// DeviceList documentation; gaps and unknowns in that documentation are
// noted inline rather than guessed at.
//
// The table is package-level read-only state initialized once at startup.
// Translate never hands out references into it.

// floatPtr returns a pointer to v, for optional bounds.
func floatPtr(v float64) *float64 {
	return &v
}

// Common property definitions shared by several device types.
var (
	booleanProperty = PropertySpec{
		Semantic:    []string{"BooleanProperty"},
		Name:        "value",
		Title:       "Value",
		Description: "Boolean value of true or false",
		Type:        PrimitiveBoolean,
	}

	onOffProperty = PropertySpec{
		Semantic:    []string{"OnOffProperty"},
		Name:        "on",
		Title:       "On/Off",
		Description: "Whether the switch is on or off",
		Type:        PrimitiveBoolean,
	}

	batteryLevelProperty = PropertySpec{
		Semantic:    []string{"LevelProperty"},
		Name:        "battery",
		Title:       "Battery Level",
		Description: "Level of the battery charge",
		Type:        PrimitiveInteger,
		Minimum:     floatPtr(0),
		Maximum:     floatPtr(100),
		Unit:        "percent",
		ReadOnly:    true,
	}

	temperatureProperty = PropertySpec{
		Semantic:    []string{"TemperatureProperty"},
		Name:        "temperature",
		Title:       "Temperature",
		Description: "The measured ambient temperature in fahrenheit",
		Type:        PrimitiveNumber,
		Unit:        "degree fahrenheit",
		ReadOnly:    true,
	}

	humidityProperty = PropertySpec{
		Semantic:    []string{"MultilevelSensor"},
		Name:        "humidity",
		Title:       "Humidity",
		Description: "The measured ambient humidity",
		Type:        PrimitiveNumber,
		Minimum:     floatPtr(0),
		Maximum:     floatPtr(100),
		Unit:        "percent",
		ReadOnly:    true,
	}
)

// table maps vendor device-type code → schema.
var table = map[string]Schema{
	"1": {
		Types:       []string{"OnOffSwitch"},
		Description: "An on/off switch",
		Properties: map[string]PropertySpec{
			"1": onOffProperty,
		},
	},
	"2": {
		Types:       []string{"MultiLevelSwitch"},
		Description: "A multilevel switch",
		Properties: map[string]PropertySpec{
			"1": {
				Semantic:    []string{"LevelProperty"},
				Name:        "level",
				Title:       "Level",
				Description: "Level of the switch from 0-100",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(100),
			},
		},
	},
	"3": {
		Types:       []string{"BinarySensor"},
		Description: "A binary sensor",
		Properties: map[string]PropertySpec{
			"1": booleanProperty,
		},
	},
	"4": {
		Types:       []string{"MultiLevelSwitch", "OnOffSwitch"},
		Description: "A multilevel switch with on/off capabilities",
		Properties: map[string]PropertySpec{
			"1": {
				Semantic:    []string{"LevelProperty"},
				Name:        "level",
				Title:       "Level",
				Description: "Level of the switch from 0-255",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(255),
			},
			"2": onOffProperty,
		},
	},
	"5": {
		Types:       []string{"Lock", "MultilevelSensor"},
		Description: "A door lock",
		Properties: map[string]PropertySpec{
			"1": {
				Semantic:    []string{"EnumProperty"},
				Name:        "locked",
				Title:       "Lock State",
				Description: "State of the lock",
				Type:        PrimitiveInteger,
				// 255 is locked/secured, 0 unlocked/unsecured. The vendor
				// documents 17, 23, and 26 without naming the states.
				Enum:    []any{255, 0, 17, 23, 26},
				Minimum: floatPtr(0),
				Maximum: floatPtr(255),
			},
			"2": {
				Name:        "config",
				Title:       "Config",
				Description: "Door lock configuration",
				Type:        PrimitiveString,
				Hidden:      true,
			},
			"3": batteryLevelProperty,
			"4": {
				Semantic:    []string{"LevelProperty"},
				Name:        "max-users",
				Title:       "Maximum users",
				Description: "Maximum users",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(20),
			},
		},
	},
	"6": {
		Types:       []string{"Alarm", "MultilevelSensor"},
		Description: "An alarm",
		Properties: map[string]PropertySpec{
			"1": {
				Semantic:    []string{"LevelProperty"},
				Name:        "basic",
				Title:       "Basic",
				Description: "Alarm level",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(255),
			},
			"2": batteryLevelProperty,
		},
	},
	"7": {
		Types:       []string{"Thermostat", "TemperatureSensor"},
		Description: "A thermostat",
		Properties: map[string]PropertySpec{
			"1": temperatureProperty,
			"2": {
				Semantic:    []string{"EnumProperty"},
				Name:        "mode",
				Title:       "Mode",
				Description: "Set operation mode of the thermostat",
				Type:        PrimitiveString,
				// Mode values are not documented by the vendor.
			},
			"3": {
				Name:        "operating-state",
				Title:       "Operating State",
				Description: "Operation state of the thermostat",
				Type:        PrimitiveString,
				ReadOnly:    true,
			},
			"4": {
				Semantic:    []string{"TemperatureProperty"},
				Name:        "target-heat",
				Title:       "Target Heating Temp",
				Description: "Target heating temperature in fahrenheit",
				Type:        PrimitiveNumber,
				Minimum:     floatPtr(35),
				Maximum:     floatPtr(95),
				Unit:        "degree fahrenheit",
			},
			"5": {
				Semantic:    []string{"TemperatureProperty"},
				Name:        "target-cool",
				Title:       "Target Cooling Temp",
				Description: "Target cooling temperature in fahrenheit",
				Type:        PrimitiveNumber,
				Minimum:     floatPtr(35),
				Maximum:     floatPtr(95),
				Unit:        "degree fahrenheit",
			},
			"6": {
				Semantic:    []string{"EnumProperty"},
				Name:        "fan-mode",
				Title:       "Fan Mode",
				Description: "Current mode of the fan",
				Type:        PrimitiveString,
				Enum:        []any{"On low", "Auto low"},
			},
			"7": {
				Name:        "fan-state",
				Title:       "Fan State",
				Description: "Current state of the fan",
				Type:        PrimitiveString,
				ReadOnly:    true,
			},
			"8": batteryLevelProperty,
			"9": {
				Name:        "units",
				Title:       "Units",
				Description: "Temperature units",
				Type:        PrimitiveString,
				Enum:        []any{"C", "F"},
			},
			"10": humidityProperty,
		},
	},
	// Type 8 is named "Controller" in the vendor documentation but lists
	// no properties, so it has no schema here.
	"9": {
		Types:       []string{"SceneController"},
		Description: "Scene actuator config",
		Properties: map[string]PropertySpec{
			"1": {
				Name:  "config",
				Title: "Scene Actuator Config",
				Type:  PrimitiveInteger,
			},
		},
	},
	"48": {
		Types:       []string{"Light"},
		Description: "A Hue lamp",
		Properties: map[string]PropertySpec{
			"1": {
				Name:        "hue-bridge-id",
				Title:       "Hue Bridge ID",
				Description: "ID of the Hue Bridge this lamp is paired with",
				Type:        PrimitiveString,
				ReadOnly:    true,
			},
			"2": onOffProperty,
			"3": {
				Semantic:    []string{"ColorTemperatureProperty"},
				Name:        "hue",
				Title:       "Hue",
				Description: "Hue of the Hue lamp in Kelvin",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(65535),
				Unit:        "kelvin",
			},
			"4": {
				Semantic:    []string{"LevelProperty"},
				Name:        "saturation",
				Title:       "Saturation",
				Description: "Saturation of the Hue lamp from 0-255",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(255),
			},
			"5": {
				Semantic:    []string{"BrightnessProperty"},
				Name:        "brightness",
				Title:       "Brightness",
				Description: "Brightness of the Hue lamp from 0-255",
				Type:        PrimitiveInteger,
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(255),
			},
			"6": {
				Name:        "effect",
				Title:       "Effect",
				Description: "Applied effect",
				Type:        PrimitiveString,
			},
			"7": {
				Name:        "color-mode",
				Title:       "Color Mode",
				Description: "Applied color mode",
				Type:        PrimitiveString,
			},
			"8": {
				Name:        "hue-bulb-id",
				Title:       "Hue Bulb ID",
				Description: "ID of this Hue lamp",
				Type:        PrimitiveInteger,
				ReadOnly:    true,
			},
			"9": {
				Name:        "user-name",
				Title:       "User Name",
				Description: "Philips Hue user",
				Type:        PrimitiveString,
				ReadOnly:    true,
			},
			"10": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "reachable",
				Title:       "Reachable",
				Description: "Whether the Hue lamp is currently reachable",
				Type:        PrimitiveBoolean,
			},
		},
	},
	"57": {
		Types:       []string{"NestThermostat", "Thermostat", "TemperatureSensor"},
		Description: "A Nest Thermostat",
		Properties: map[string]PropertySpec{
			"1": {
				Name:        "nest-id",
				Title:       "Nest ID",
				Description: "ID of the Nest Thermostat",
				Type:        PrimitiveString,
				ReadOnly:    true,
			},
			"2": {
				Semantic:    []string{"EnumProperty"},
				Name:        "mode",
				Title:       "Mode",
				Description: "Set operation mode of the thermostat",
				Type:        PrimitiveString,
				Enum:        []any{"heat", "cool", "heat-cool", "off"},
			},
			"3": {
				Semantic:    []string{"TemperatureProperty"},
				Name:        "target-temperature",
				Title:       "Target Temp",
				Description: "Target temperature in fahrenheit",
				Type:        PrimitiveNumber,
				Minimum:     floatPtr(50),
				Maximum:     floatPtr(90),
				Unit:        "degree fahrenheit",
			},
			"4": humidityProperty,
			"5": {
				Semantic:    []string{"TemperatureProperty"},
				Name:        "temperature-range-low",
				Title:       "Temp Range Low",
				Description: "Low temperature range",
				Type:        PrimitiveNumber,
				Minimum:     floatPtr(50),
				Maximum:     floatPtr(90),
				Unit:        "degree fahrenheit",
			},
			"6": {
				Semantic:    []string{"TemperatureProperty"},
				Name:        "temperature-range-high",
				Title:       "Temp Range High",
				Description: "High temperature range",
				Type:        PrimitiveNumber,
				Minimum:     floatPtr(50),
				Maximum:     floatPtr(90),
				Unit:        "degree fahrenheit",
			},
			"7": {
				Name:        "units",
				Title:       "Units",
				Description: "Temperature units",
				Type:        PrimitiveString,
				Enum:        []any{"C", "F"},
			},
			"8": {
				Semantic:    []string{"EnumProperty"},
				Name:        "away-mode",
				Title:       "Away Mode",
				Description: "Away mode",
				Type:        PrimitiveString,
				Enum:        []any{"home", "away", "auto-away", "unknown"},
			},
			"9": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "fan-state",
				Title:       "Fan State",
				Description: "Current state of the fan",
				Type:        PrimitiveBoolean,
			},
			"10": temperatureProperty,
			"11": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "is-online",
				Title:       "Online",
				Description: "Whether the thermostat is online",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"12": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "can-cool",
				Title:       "Can Cool",
				Description: "Whether the thermostat can cool",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"13": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "can-heat",
				Title:       "Can Heat",
				Description: "Whether the thermostat can heat",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"14": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "using-emergency-heat",
				Title:       "Using Emergency Heat",
				Description: "Whether the thermostat is in emergency heat mode",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"15": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "has-fan",
				Title:       "Has Fan",
				Description: "Whether the thermostat has control of a fan",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"16": {
				Semantic:    []string{"EnumProperty"},
				Name:        "hvac-state",
				Title:       "HVAC State",
				Description: "Current state of the HVAC system",
				Type:        PrimitiveString,
				Enum:        []any{"heating", "cooling", "off"},
				ReadOnly:    true,
			},
			"17": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "leaf",
				Title:       "Leaf",
				Description: "Whether the thermostat shows the energy-efficiency leaf",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"18": {
				Name:        "response-code",
				Title:       "Response Code",
				Description: "HTTP response code (should be 200)",
				Type:        PrimitiveInteger,
				ReadOnly:    true,
			},
		},
	},
	"58": {
		Types:       []string{"NestProtect", "SmokeDetector", "CODetector"},
		Description: "A Nest Protect Smoke/CO Detector",
		Properties: map[string]PropertySpec{
			"1": {
				Name:        "nest-id",
				Title:       "Nest ID",
				Description: "ID of the Nest Protect",
				Type:        PrimitiveString,
				ReadOnly:    true,
			},
			"2": {
				Semantic:    []string{"EnumProperty"},
				Name:        "battery",
				Title:       "Battery",
				Description: "Battery status",
				Type:        PrimitiveString,
				Enum:        []any{"ok", "replace"},
				ReadOnly:    true,
			},
			"3": {
				Semantic:    []string{"EnumProperty"},
				Name:        "co-alarm-state",
				Title:       "CO Alarm State",
				Description: "State of the CO detector",
				Type:        PrimitiveString,
				Enum:        []any{"ok", "warning", "replace"},
				ReadOnly:    true,
			},
			"4": {
				Semantic:    []string{"EnumProperty"},
				Name:        "smoke-alarm-state",
				Title:       "Smoke Alarm State",
				Description: "State of the smoke detector",
				Type:        PrimitiveString,
				Enum:        []any{"ok", "warning", "replace"},
				ReadOnly:    true,
			},
			"5": {
				Semantic:    []string{"BooleanProperty"},
				Name:        "is-online",
				Title:       "Online",
				Description: "Whether the detector is online",
				Type:        PrimitiveBoolean,
				ReadOnly:    true,
			},
			"6": {
				Semantic:    []string{"EnumProperty"},
				Name:        "away-mode",
				Title:       "Away Mode",
				Description: "Away mode",
				Type:        PrimitiveString,
				Enum:        []any{"home", "away", "auto-away", "unknown"},
			},
			"7": {
				Name:        "response-code",
				Title:       "Response Code",
				Description: "HTTP response code (should be 200)",
				Type:        PrimitiveInteger,
				ReadOnly:    true,
			},
		},
	},
}

// Lookup returns the schema for a vendor device-type code.
// The returned schema is an independent copy; mutating it does not affect
// the table.
func Lookup(typeCode string) (Schema, bool) {
	s, ok := table[typeCode]
	if !ok {
		return Schema{}, false
	}
	return s.clone(), true
}

// KnownTypes returns the vendor device-type codes present in the table.
func KnownTypes() []string {
	codes := make([]string, 0, len(table))
	for code := range table {
		codes = append(codes, code)
	}
	return codes
}

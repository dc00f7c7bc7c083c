package config

// Persistent state keys (Registry)
const (
	KeyAxisGains  = "axis_gains"
	KeyMasterGain = "master_gain"
	KeyIntensity  = "intensity"
	KeyLoadLevel  = "load_level"
	KeySimSource  = "sim_source"
	KeyFlightMode = "flight_mode"
	KeyAssist     = "assist_level"
)

package config

type LoggerConfig struct {
	// Serial device of the IR read head, used when DeviceName is empty.
	SerialDevice string `toml:"serial_device"`
	// USB device name to locate the port with when set, e.g. "FT232R".
	DeviceName string `toml:"device_name"`
	// Poll interval. Values below 2 fall back to the default of 60.
	CycleSeconds int `toml:"cycle_seconds"`
	// Read window for one frame within a cycle.
	ReadTimeoutSeconds int `toml:"read_timeout_seconds"`
	// Persist readings to the meter database.
	PersistenceEnabled bool `toml:"persistence_enabled"`
	// Serve /latest and /ws when non-empty, e.g. "0.0.0.0:9039".
	ApiListen string `toml:"api_listen"`

	Registers []RegisterConfig `toml:"registers"`
}

type RegisterConfig struct {
	// OBIS display form, e.g. "1-0:1.8.0".
	Obis string `toml:"obis"`
	// Series the register is stored under in the data table.
	EntityID int64 `toml:"entity_id"`
}

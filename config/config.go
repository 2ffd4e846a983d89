package config

type Configuration struct {
	App       App             `mapstructure:"APP" json:"app" yaml:"app"`
	Log       Log             `mapstructure:"LOG" json:"log" yaml:"log"`
	MongoDB   MongoDB         `mapstructure:"MONGODB" json:"mongodb" yaml:"mongodb"`
	Redis     Redis           `mapstructure:"REDIS" json:"redis" yaml:"redis"`
	Fluentd   Fluentd         `mapstructure:"FLUENTD" json:"fluentd" yaml:"fluentd"`
	Telemetry TelemetryConfig `mapstructure:"TELEMETRY" json:"telemetry" yaml:"telemetry"`
	Proxy     Proxy           `mapstructure:"PROXY" json:"proxy" yaml:"proxy"`
	Audit     Audit           `mapstructure:"AUDIT" json:"audit" yaml:"audit"`
	Admin     Admin           `mapstructure:"ADMIN" json:"admin" yaml:"admin"`
}

// ApplyDefaults fills zero values after viper has unmarshalled the sources.
func (c *Configuration) ApplyDefaults() *Configuration {
	if c.App.Name == "" {
		c.App.Name = "mme"
	}
	if c.App.Port == 0 {
		c.App.Port = 5000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.MongoDB.Database == "" {
		c.MongoDB.Database = "mme"
	}
	if c.Redis.CacheTTLSeconds <= 0 {
		c.Redis.CacheTTLSeconds = 60
	}
	c.Proxy.applyDefaults()
	c.Audit.applyDefaults()
	if c.Admin.TokenTTLMinutes <= 0 {
		c.Admin.TokenTTLMinutes = 720
	}
	return c
}

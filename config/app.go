package config

type App struct {
	Env     string `mapstructure:"ENV" json:"env" yaml:"env"`
	Port    uint32 `mapstructure:"PORT" json:"port" yaml:"port"`
	Name    string `mapstructure:"NAME" json:"name" yaml:"name"`
	Version string `mapstructure:"VERSION" json:"version" yaml:"version"`
	// Mounts /debug/pprof on the main router.
	PprofEnabled bool `mapstructure:"PPROF_ENABLED" json:"pprof_enabled" yaml:"pprof_enabled"`
	// CORS origins for the admin API; empty allows any origin.
	AllowOrigins []string `mapstructure:"ALLOW_ORIGINS" json:"allow_origins" yaml:"allow_origins"`
}

type Log struct {
	Level  string `mapstructure:"LEVEL" json:"level" yaml:"level"`
	Format string `mapstructure:"FORMAT" json:"format" yaml:"format"` // json | console
}

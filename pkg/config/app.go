package config

// AppVersion is set at build time via ldflags.
var AppVersion = "DEVELOPMENT"

const (
	AppName = "unplug"
	LogFile = "unplug.log"
	CfgFile = "config.toml"
	UserDir = "user"
)

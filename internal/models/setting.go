// internal/models/setting.go
package models

type Setting struct {
	Key   string `json:"key" gorm:"primaryKey;size:128"`
	Value string `json:"value" gorm:"type:text;not null"`
}

const (
	SettingServerURL          = "server_url"
	SettingUpstreamPluginsURL = "upstream_plugins_url"
)

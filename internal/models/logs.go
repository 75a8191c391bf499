// internal/models/logs.go
package models

// AccessLog is the append-only audit trail of admission decisions and
// administrative actions.
type AccessLog struct {
	BaseModel
	LicenseKey string `json:"license_key" gorm:"index;size:64;default:''"`
	DeviceID   string `json:"device_id" gorm:"size:255;default:''"`
	Action     string `json:"action" gorm:"size:64;not null;index"`
	IPAddress  string `json:"ip_address" gorm:"size:64;default:''"`
	Details    string `json:"details" gorm:"type:text"`
}

// PluginUsage records one plugin event (HOME/OPEN/SEARCH/LOAD/PLAY/...).
type PluginUsage struct {
	BaseModel
	LicenseKey string `json:"license_key" gorm:"index;size:64;not null"`
	DeviceID   string `json:"device_id" gorm:"size:255;default:''"`
	PluginName string `json:"plugin_name" gorm:"size:255;not null"`
	Action     string `json:"action" gorm:"size:32;default:'OPEN'"`
	IPAddress  string `json:"ip_address" gorm:"size:64;default:''"`
}

func (PluginUsage) TableName() string {
	return "plugin_usage"
}

// PlaybackLog records one playback or download event.
type PlaybackLog struct {
	BaseModel
	LicenseKey     string `json:"license_key" gorm:"index;size:64;not null"`
	DeviceID       string `json:"device_id" gorm:"size:255;default:''"`
	PluginName     string `json:"plugin_name" gorm:"size:255;not null"`
	VideoTitle     string `json:"video_title" gorm:"size:512;not null"`
	SourceProvider string `json:"source_provider" gorm:"size:255;default:''"`
	IPAddress      string `json:"ip_address" gorm:"size:64;default:''"`
}

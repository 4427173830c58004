package model

// ServerInfo is the connection summary shown by showInfo and served to the
// bot and the API.
type ServerInfo struct {
	State    string `json:"state"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	Method   string `json:"method"`
	Link     string `json:"link"`
	Version  string `json:"version,omitempty"`
	PID      int32  `json:"pid,omitempty"`
	Memory   string `json:"memory,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
}

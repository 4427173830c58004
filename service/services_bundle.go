package service

import "github.com/igor04091968/ss-manager/config"

// ServicesBundle groups initialized service instances so app, api and
// telegram share one set without import cycles. History is nil when the
// database could not be opened.
type ServicesBundle struct {
	Runner         Runner
	ConfigService  *ConfigService
	SystemdService *SystemdService
	AddressService *AddressService
	ReleaseService *ReleaseService
	HostService    *HostService
	HistoryService *HistoryService
	// Firewall is detected on first use when nil.
	Firewall Firewall
}

// NewServicesBundle wires the services from settings. withHistory is false
// when the database is unavailable.
func NewServicesBundle(s *config.Settings, runner Runner, withHistory bool) *ServicesBundle {
	b := &ServicesBundle{
		Runner:        runner,
		ConfigService: NewConfigService(s.ConfigPath),
		SystemdService: NewSystemdService(runner, UnitOptions{
			Name:        s.ServiceName,
			UnitPath:    s.UnitPath,
			ExecPath:    s.BinaryPath,
			ConfigPath:  s.ConfigPath,
			User:        s.UnitUser,
			SettleDelay: s.SettleDelay,
		}),
		AddressService: NewAddressService(s.IPEndpoint, s.IPTimeout),
		ReleaseService: NewReleaseService(s.ReleaseAPI, s.ReleaseURL),
		HostService:    &HostService{},
	}
	if withHistory {
		b.HistoryService = NewHistoryService()
	}
	return b
}

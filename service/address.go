package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/igor04091968/ss-manager/logger"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/vishvananda/netlink"
)

const fallbackAddress = "127.0.0.1"

// AddressService finds the address clients should dial.
type AddressService struct {
	client   *http.Client
	endpoint string
	local    func() (string, error)
}

func NewAddressService(endpoint string, timeout time.Duration) *AddressService {
	return &AddressService{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		local:    LocalAddress,
	}
}

// PublicAddress asks the echo endpoint once. On any failure it falls back to
// the local best guess and finally to loopback; it never fails.
func (s *AddressService) PublicAddress(ctx context.Context) string {
	ip, err := s.fetch(ctx)
	if err == nil {
		return ip
	}
	logger.Warning("public address lookup failed, using local address: ", err)
	local, lerr := s.local()
	if lerr == nil && local != "" {
		return local
	}
	logger.Warning("local address lookup failed: ", lerr)
	return fallbackAddress
}

func (s *AddressService) fetch(ctx context.Context) (string, error) {
	if s.endpoint == "" {
		return "", errors.New("no address endpoint configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return "", err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %s", s.endpoint, res.Status)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 256))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%s returned %q, not an address", s.endpoint, ip)
	}
	return ip, nil
}

// LocalAddress returns the source address of the default route, or the
// first global unicast interface address.
func LocalAddress() (string, error) {
	routes, err := netlink.RouteGet(net.ParseIP("1.1.1.1"))
	if err == nil {
		for _, r := range routes {
			if r.Src != nil && r.Src.IsGlobalUnicast() {
				return r.Src.String(), nil
			}
		}
	}
	ifaces, err := psnet.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		for _, a := range iface.Addrs {
			ip, _, err := net.ParseCIDR(a.Addr)
			if err != nil {
				continue
			}
			if ip.To4() != nil && ip.IsGlobalUnicast() {
				return ip.String(), nil
			}
		}
	}
	return "", errors.New("no global unicast address found")
}

package util

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/igor04091968/ss-manager/database/model"
)

const linkScheme = "ss://"

// ShadowsocksLink builds ss://base64(method:password@host:port). The
// encoded part is a single unwrapped token.
func ShadowsocksLink(cfg *model.ServerConfig, host string) string {
	userInfo := fmt.Sprintf("%s:%s@%s", cfg.Method, cfg.Password, net.JoinHostPort(host, strconv.Itoa(cfg.Port)))
	return linkScheme + toBase64([]byte(userInfo))
}

// LinkInfo is what a client recovers from a link.
type LinkInfo struct {
	Method   string
	Password string
	Host     string
	Port     int
}

// ParseShadowsocksLink reverses ShadowsocksLink. A trailing #remark is
// ignored, and padded or unpadded, standard or url-safe base64 is accepted.
func ParseShadowsocksLink(uri string) (*LinkInfo, error) {
	if !strings.HasPrefix(uri, linkScheme) {
		return nil, fmt.Errorf("not a shadowsocks link: %q", uri)
	}
	body := strings.TrimPrefix(uri, linkScheme)
	if i := strings.IndexByte(body, '#'); i >= 0 {
		body = body[:i]
	}
	decoded, err := fromBase64(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode link: %w", err)
	}
	s := string(decoded)

	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return nil, errors.New("link has no host part")
	}
	method, password, ok := strings.Cut(s[:at], ":")
	if !ok {
		return nil, errors.New("link has no password")
	}
	host, portStr, err := net.SplitHostPort(s[at+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid link address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid link port: %w", err)
	}
	return &LinkInfo{Method: method, Password: password, Host: host, Port: port}, nil
}

func toBase64(d []byte) string {
	return base64.StdEncoding.EncodeToString(d)
}

func fromBase64(s string) ([]byte, error) {
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, err
}

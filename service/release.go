package service

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/igor04091968/ss-manager/logger"
	"github.com/ulikunitz/xz"
)

const serverBinary = "ssserver"

var archTriples = map[string]string{
	"x86_64":  "x86_64-unknown-linux-gnu",
	"aarch64": "aarch64-unknown-linux-gnu",
	"arm64":   "aarch64-unknown-linux-gnu",
	"armv7l":  "armv7-unknown-linux-gnueabihf",
	"i686":    "i686-unknown-linux-musl",
	"i386":    "i686-unknown-linux-musl",
}

// ReleaseTriple maps a kernel arch to the shadowsocks-rust asset suffix.
func ReleaseTriple(arch string) (string, error) {
	triple, ok := archTriples[arch]
	if !ok {
		return "", fmt.Errorf("unsupported architecture %q", arch)
	}
	return triple, nil
}

// ReleaseService fetches shadowsocks-rust release archives.
type ReleaseService struct {
	client      *http.Client
	apiURL      string
	downloadURL string
}

func NewReleaseService(apiURL, downloadURL string) *ReleaseService {
	return &ReleaseService{
		client:      &http.Client{Timeout: 5 * time.Minute},
		apiURL:      apiURL,
		downloadURL: downloadURL,
	}
}

// Latest returns the tag of the newest release.
func (s *ReleaseService) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	res, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query latest release: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to query latest release: %s", res.Status)
	}
	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to decode release: %w", err)
	}
	if release.TagName == "" {
		return "", errors.New("release has no tag")
	}
	return release.TagName, nil
}

func (s *ReleaseService) AssetURL(tag, triple string) string {
	return fmt.Sprintf("%s/%s/shadowsocks-%s.%s.tar.xz", s.downloadURL, tag, tag, triple)
}

// Install downloads the release archive and puts ssserver at dest.
func (s *ReleaseService) Install(ctx context.Context, tag, triple, dest string) error {
	url := s.AssetURL(tag, triple)
	logger.Info("downloading ", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: %s", url, res.Status)
	}

	xr, err := xz.NewReader(res.Body)
	if err != nil {
		return fmt.Errorf("failed to open xz stream: %w", err)
	}
	return extractBinary(tar.NewReader(xr), serverBinary, dest)
}

func extractBinary(tr *tar.Reader, name, dest string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("%s not found in archive", name)
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != name {
			continue
		}
		return writeExecutable(tr, dest)
	}
}

func writeExecutable(r io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}
	tmp := dest + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	// replace in place so a running ssserver keeps its old inode
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

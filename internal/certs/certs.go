// Package certs reports on the local TLS certificate skrills uses when its
// HTTP transport is exposed with --tls-auto. It never talks to an ACME
// server or CA: it only reads and describes whatever cert.pem/key.pem
// already sit in the TLS directory.
package certs

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// expiryWarningDays is the threshold at or below which Summary labels
	// a certificate "WARNING" rather than "OK".
	expiryWarningDays = 30
)

// Info describes the state of a single certificate file.
type Info struct {
	Path            string `json:"path"`
	Exists          bool   `json:"exists"`
	Issuer          string `json:"issuer,omitempty"`
	Subject         string `json:"subject,omitempty"`
	NotBefore       string `json:"not_before,omitempty"`
	NotAfter        string `json:"not_after,omitempty"`
	DaysUntilExpiry *int64 `json:"days_until_expiry,omitempty"`
	Valid           bool   `json:"is_valid"`
	SelfSigned      bool   `json:"is_self_signed"`
}

// Status is the full picture returned by `skrills cert status`.
type Status struct {
	Cert           Info   `json:"cert"`
	KeyExists      bool   `json:"key_exists"`
	KeyFingerprint string `json:"key_fingerprint,omitempty"`
	TLSDir         string `json:"tls_dir"`
}

// CertStore abstracts reading the on-disk TLS material so callers that
// only need status reporting can be tested without touching a real
// filesystem layout.
type CertStore interface {
	TLSDir() (string, error)
	ReadCert(path string) ([]byte, error)
	ReadKey(path string) ([]byte, error)
	StatPath(path string) bool
}

// FileStore is the default CertStore, rooted at ~/.skrills/tls.
type FileStore struct{}

func (FileStore) TLSDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".skrills", "tls"), nil
}

func (FileStore) ReadCert(path string) ([]byte, error) { return os.ReadFile(path) }
func (FileStore) ReadKey(path string) ([]byte, error)   { return os.ReadFile(path) }
func (FileStore) StatPath(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ParseCertInfo reads and parses a PEM certificate at path, following the
// same "missing file is not an error" convention as the status command: a
// nonexistent cert reports Exists: false rather than failing.
func ParseCertInfo(store CertStore, path string) (Info, error) {
	if !store.StatPath(path) {
		return Info{Path: path}, nil
	}

	data, err := store.ReadCert(path)
	if err != nil {
		return Info{}, fmt.Errorf("read certificate %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return Info{}, fmt.Errorf("no PEM block found in %s", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return Info{}, fmt.Errorf("parse x509 certificate %s: %w", path, err)
	}

	now := time.Now()
	days := int64(cert.NotAfter.Sub(now).Hours() / 24)

	return Info{
		Path:            path,
		Exists:          true,
		Issuer:          cert.Issuer.String(),
		Subject:         cert.Subject.String(),
		NotBefore:       cert.NotBefore.Format(time.RFC1123Z),
		NotAfter:        cert.NotAfter.Format(time.RFC1123Z),
		DaysUntilExpiry: &days,
		Valid:           days > 0,
		SelfSigned:      cert.Issuer.String() == cert.Subject.String(),
	}, nil
}

// KeyFingerprint computes a SHA-256 fingerprint of a key file for safe
// display, matching the "SHA256:<hex>" shape skills operators expect from
// `ssh-keygen`-style tooling.
func KeyFingerprint(store CertStore, path string) (string, error) {
	data, err := store.ReadKey(path)
	if err != nil {
		return "", fmt.Errorf("read key file %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("SHA256:%x", sum), nil
}

// GetStatus assembles the full cert.pem/key.pem status for the TLS
// directory served by store.
func GetStatus(store CertStore) (Status, error) {
	tlsDir, err := store.TLSDir()
	if err != nil {
		return Status{}, err
	}
	certPath := filepath.Join(tlsDir, "cert.pem")
	keyPath := filepath.Join(tlsDir, "key.pem")

	certInfo, err := ParseCertInfo(store, certPath)
	if err != nil {
		return Status{}, err
	}

	keyExists := store.StatPath(keyPath)
	var fingerprint string
	if keyExists {
		fingerprint, _ = KeyFingerprint(store, keyPath)
	}

	return Status{
		Cert:           certInfo,
		KeyExists:      keyExists,
		KeyFingerprint: fingerprint,
		TLSDir:         tlsDir,
	}, nil
}

// Summary renders a single-line status string suitable for startup logs,
// mirroring the "TLS: N days until expiry [STATUS]" banner.
func Summary(store CertStore) string {
	status, err := GetStatus(store)
	if err != nil || !status.Cert.Exists || status.Cert.DaysUntilExpiry == nil {
		return ""
	}

	days := *status.Cert.DaysUntilExpiry
	var label string
	switch {
	case days <= 0:
		label = "EXPIRED"
	case days <= 7:
		label = "CRITICAL"
	case days <= expiryWarningDays:
		label = "WARNING"
	default:
		label = "OK"
	}

	selfSigned := ""
	if status.Cert.SelfSigned {
		selfSigned = " (self-signed)"
	}

	return fmt.Sprintf("TLS: %d days until expiry [%s]%s", days, label, selfSigned)
}

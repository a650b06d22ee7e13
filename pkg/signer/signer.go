// Package signer re-signs merged archives with a local debug identity.
package signer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/apkfetch/pkg/fsutil"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/tool"
	"github.com/sirupsen/logrus"
)

// DefaultPassphrase is the conventional debug keystore passphrase.
const DefaultPassphrase = "android"

// Signer signs an archive. Implementations never fail: without a usable
// signing setup they return the input.
type Signer interface {
	Sign(ctx context.Context, data []byte) []byte
	Name() string
}

// Noop returns its input unchanged.
type Noop struct{}

// Sign returns data.
func (Noop) Sign(_ context.Context, data []byte) []byte { return data }

// Name returns the strategy name.
func (Noop) Name() string { return "unsigned" }

// APKSigner signs with the apksigner tool.
type APKSigner struct {
	Tool       string
	Keystore   string
	Passphrase string
	Runner     tool.Runner
}

// Name returns the strategy name.
func (s *APKSigner) Name() string { return "apksigner" }

// Sign writes data to a scratch directory, signs it and reads the result back.
// On any failure the unsigned input is returned.
func (s *APKSigner) Sign(ctx context.Context, data []byte) []byte {
	signed, err := s.sign(ctx, data)
	if err != nil {
		logger.Error("Signing failed, returning unsigned archive", logrus.Fields{"error": err})
		return data
	}
	return signed
}

func (s *APKSigner) sign(ctx context.Context, data []byte) ([]byte, error) {
	work, err := os.MkdirTemp("", "apk_sign_")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(work) }()

	in := filepath.Join(work, "in.apk")
	out := filepath.Join(work, "out.apk")
	if err := os.WriteFile(in, data, fsutil.FileModeSecure); err != nil {
		return nil, err
	}

	pass := s.Passphrase
	if pass == "" {
		pass = DefaultPassphrase
	}
	if _, err := s.Runner.Run(ctx, s.Tool,
		"sign",
		"--ks", s.Keystore,
		"--ks-pass", "pass:"+pass,
		"--key-pass", "pass:"+pass,
		"--out", out,
		in,
	); err != nil {
		return nil, err
	}

	signed, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("signing tool produced no output: %w", err)
	}
	return signed, nil
}

// ProbeOptions locates the signing tool and identity.
type ProbeOptions struct {
	Tool       string
	Keystore   string
	Passphrase string
	Runner     tool.Runner
}

// DefaultKeystore returns ~/.android/debug.keystore.
func DefaultKeystore() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".android", "debug.keystore")
}

// Probe selects the signer once: apksigner when both the tool and the
// keystore exist, Noop otherwise.
func Probe(opts ProbeOptions) Signer {
	name := opts.Tool
	if name == "" {
		name = "apksigner"
	}
	keystore := opts.Keystore
	if keystore == "" {
		keystore = DefaultKeystore()
	}

	toolPath, ok := tool.Find(name)
	if !ok || !tool.FileExists(keystore) {
		logger.Debug("Signing unavailable, artifacts stay unsigned", logrus.Fields{"tool": name, "keystore": keystore})
		return Noop{}
	}

	runner := opts.Runner
	if runner == nil {
		runner = tool.Exec{}
	}
	return &APKSigner{
		Tool:       toolPath,
		Keystore:   keystore,
		Passphrase: opts.Passphrase,
		Runner:     runner,
	}
}

package binary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/log"
)

// Config configures a Provisioner.
type Config struct {
	CacheDir  string           // root under which archives are fetched and extracted
	Fetcher   Fetcher          // defaults to NewDownloader()
	Extractor ArchiveExtractor // defaults to NewExtractor()
	Verifier  *Verifier        // defaults to NewVerifier()
	Logger    log.Logger       // defaults to log.Default()
}

// Provisioner turns a Request into a runnable executable on disk.
type Provisioner struct {
	cacheDir  string
	fetcher   Fetcher
	extractor ArchiveExtractor
	verifier  *Verifier
	logger    log.Logger
}

// NewProvisioner creates a new provisioner
func NewProvisioner(cfg Config) (*Provisioner, error) {
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}

	p := &Provisioner{
		cacheDir:  cfg.CacheDir,
		fetcher:   cfg.Fetcher,
		extractor: cfg.Extractor,
		verifier:  cfg.Verifier,
		logger:    cfg.Logger,
	}
	if p.fetcher == nil {
		p.fetcher = NewDownloader(WithDownloadLogger(cfg.Logger))
	}
	if p.extractor == nil {
		p.extractor = NewExtractor()
	}
	if p.verifier == nil {
		p.verifier = NewVerifier()
	}
	if p.logger == nil {
		p.logger = log.Default()
	}

	return p, nil
}

// Provision makes the executable described by req available and runnable.
//
// An existing local path is used as-is without network access. Otherwise the
// archive URL is taken from the request or the driver's Source, fetched into
// the cache, optionally verified, extracted and searched with the driver's
// locate function. The returned path is always executable; any failure aborts
// the call and nothing is retried here.
func (p *Provisioner) Provision(ctx context.Context, d *Driver, req Request) (Resolved, error) {
	if d == nil {
		return Resolved{}, fmt.Errorf("driver is required")
	}
	if req.Platform == nil {
		return Resolved{}, fmt.Errorf("platform is required")
	}

	name := d.ExecutableName(req.Platform)
	logger := p.logger.With("driver", d.Name)

	if req.LocalPath != "" {
		if info, err := os.Stat(req.LocalPath); err == nil && info.Mode().IsRegular() {
			logger.Debug("using local binary", "path", req.LocalPath)
			if err := MarkExecutable(req.LocalPath); err != nil {
				return Resolved{}, err
			}
			return Resolved{Path: req.LocalPath, Name: filepath.Base(req.LocalPath)}, nil
		}
		logger.Warn("configured local binary not found, falling back to download", "path", req.LocalPath)
	}

	release, err := p.resolveRelease(ctx, d, req)
	if err != nil {
		return Resolved{}, err
	}
	logger = logger.With("url", release.URL)

	targetDir := filepath.Join(p.cacheDir, d.cacheSubdir(), targetDirName(release))
	archive, err := p.fetcher.Fetch(ctx, release.URL, targetDir)
	if err != nil {
		var dlErr *DownloadError
		if errors.As(err, &dlErr) {
			return Resolved{}, err
		}
		return Resolved{}, &DownloadError{URL: release.URL, Err: err}
	}
	logger.Debug("archive fetched", "archive", archive)

	if err := p.verify(ctx, archive, targetDir, req); err != nil {
		// A rejected archive must not be served from the cache next time
		discard(logger, archive)
		return Resolved{}, err
	}

	root, err := p.extractor.Extract(archive)
	if err != nil {
		var exErr *ExtractionError
		if errors.As(err, &exErr) {
			return Resolved{}, err
		}
		return Resolved{}, &ExtractionError{Archive: archive, Err: err}
	}

	path, err := d.locate()(root, name)
	if err != nil {
		return Resolved{}, err
	}

	if err := MarkExecutable(path); err != nil {
		return Resolved{}, err
	}

	logger.Info("driver provisioned", "path", path, "version", release.Version)
	return Resolved{
		Path:      path,
		Name:      name,
		Version:   release.Version,
		SourceURL: release.URL,
	}, nil
}

// resolveRelease picks the archive URL: the request's URL, else the driver's
// source.
func (p *Provisioner) resolveRelease(ctx context.Context, d *Driver, req Request) (*Release, error) {
	if req.URL != "" {
		return &Release{URL: req.URL}, nil
	}

	if d.Source == nil {
		return nil, &UnsupportedSourceError{Driver: d.Name, Strategy: req.Strategy()}
	}

	release, err := d.Source.Resolve(ctx, req.Version, req.Platform)
	if err != nil {
		return nil, fmt.Errorf("resolve %s release: %w", d.Name, err)
	}
	if release == nil || release.URL == "" {
		return nil, &UnsupportedSourceError{Driver: d.Name, Strategy: req.Strategy()}
	}

	return release, nil
}

// verify checks the archive when the request asks for a digest or signature.
func (p *Provisioner) verify(ctx context.Context, archive, targetDir string, req Request) error {
	if req.SHA256 != "" {
		if err := p.verifier.VerifySHA256(archive, req.SHA256); err != nil {
			return err
		}
	}

	if req.SignatureURL == "" {
		return nil
	}
	if req.KeyringPath == "" {
		return &VerificationError{Path: archive, Method: VerificationGPG, Err: errors.New("signature URL set without a keyring")}
	}

	sigPath, err := p.fetcher.Fetch(ctx, req.SignatureURL, targetDir)
	if err != nil {
		return &VerificationError{Path: archive, Method: VerificationGPG, Err: fmt.Errorf("fetch signature: %w", err)}
	}

	if err := p.verifier.VerifySignature(archive, sigPath, req.KeyringPath); err != nil {
		discard(p.logger, sigPath)
		return err
	}
	return nil
}

// discard removes a cached file that failed verification.
func discard(logger log.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove rejected file", "path", path, "error", err)
	}
}

// targetDirName names the cache directory for a release: the version when
// known, otherwise a short digest of the URL.
func targetDirName(r *Release) string {
	if v := sanitizePathElement(r.Version); v != "" {
		return v
	}
	sum := sha256.Sum256([]byte(r.URL))
	return "url-" + hex.EncodeToString(sum[:])[:12]
}

func sanitizePathElement(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

// Package binary provisions versioned driver executables: it resolves which
// binary is wanted from layered configuration, downloads and unpacks its
// release archive when needed, locates the executable inside the unpacked
// tree and makes it runnable.
//
// # Acquisition strategies
//
// Every Request resolves to exactly one strategy, in fixed precedence:
//
//  1. Local path: an existing file named by configuration is used as-is.
//  2. URL: an explicit download URL is fetched.
//  3. Version: the driver's release Source derives a URL for the version.
//  4. Latest: with nothing configured, the Source picks the newest release.
//
// # Pipeline
//
// For the URL, Version and Latest strategies the Provisioner runs
// fetch → verify (optional) → extract → locate → mark executable. Any failure
// aborts the whole operation with a typed error: DownloadError,
// VerificationError, ExtractionError, LayoutError or PermissionError. The
// Provisioner itself never retries; the Downloader owns retry policy.
//
// # Usage
//
//	p, err := binary.NewProvisioner(binary.Config{CacheDir: cacheDir})
//	if err != nil {
//	    return err
//	}
//
//	req := binary.ResolveRequest(props, driver, platformInfo)
//	resolved, err := p.Provision(ctx, driver, req)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resolved.Path)
//
// # Architecture
//
//   - Provisioner: orchestration of the steps above
//   - Downloader: HTTP download with retries and a per-version cache directory
//   - Extractor: tar (gz, xz, bz2, zst, lz) and zip extraction
//   - Verifier: SHA-256 digest and OpenPGP detached-signature checks
//   - LocateNestedBin / LocateFlat: archive layout conventions
package binary

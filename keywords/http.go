package keywords

import "time"

// HTTPRequestTimeout is the default timeout for all HTTP requests to external APIs.
const HTTPRequestTimeout = 60 * time.Second

// SFTPDialTimeout bounds the dial, SSH handshake and SFTP session start with
// the SA360 partner endpoint.
const SFTPDialTimeout = 30 * time.Second

// SecretFetchTimeout bounds each secret read.
const SecretFetchTimeout = 30 * time.Second

package retreat

import "embed"

// Assets contains the static files served under /public when no static
// directory is configured: styles.css, favicon.svg
//
//go:embed public/*
var Assets embed.FS

// Package appfs exposes the embedded assets shipped with the binary:
// database migrations and email templates.
package appfs

import "embed"

// The all: prefix keeps the "_"-prefixed template bases in the embed;
// plain patterns skip them.
//
//go:embed migrations all:assets
var FS embed.FS

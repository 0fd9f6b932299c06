// Package scripts embeds the Risor scripts run by the engine.
package scripts

import "embed"

// FS holds the extraction scripts, rooted so that paths read
// "extract/rust.risor".
//
//go:embed extract/*.risor
var FS embed.FS

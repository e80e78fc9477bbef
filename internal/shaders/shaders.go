// Package shaders embeds the WGSL compute kernels for the four-pass tick
// pipeline (Count, Prefix Sum, Re-Pack, Integration).
package shaders

import (
	_ "embed"
)

//go:embed count.wgsl
var CountWGSL string

//go:embed prefix_sum.wgsl
var PrefixSumWGSL string

//go:embed repack.wgsl
var RepackWGSL string

//go:embed integration.wgsl
var IntegrationWGSL string

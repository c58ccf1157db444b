// Package catalog reads the package catalog (packages.toml) that names every
// installable package, where to download it and how to stage its files.
package catalog

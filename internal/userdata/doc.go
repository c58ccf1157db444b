// Package userdata resolves the on-disk layout shared by both managers: the
// operating mode, the tool root with its module tiers, the per-project .box
// directory, package state locations, and .env files.
package userdata

// Package config manages user-level settings stored at ~/.devbox/config.yaml.
// Values can be overridden with DEVBOX_* environment variables, e.g.
// DEVBOX_LOG_LEVEL=debug or DEVBOX_BUNDLE=/opt/devbox.bundle.
package config

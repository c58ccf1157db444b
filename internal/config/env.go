package config

import "strings"

// envKeyReplacer maps nested keys such as "log.level" onto DEVBOX_LOG_LEVEL.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

package utils

import (
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates struct fields against their validate tags.
func ValidateStruct(obj interface{}) error {
	return validate.Struct(obj)
}

// IsValidHost validates a target host: %, localhost, IPv4/IPv6, or a domain name.
// MySQL account hosts additionally allow the % wildcard.
func IsValidHost(host string) bool {
	if host == "" {
		return false
	}

	if host == "%" {
		return true
	}

	if strings.ToLower(host) == "localhost" {
		return true
	}

	if net.ParseIP(host) != nil {
		return true
	}

	// Domain name validation - MySQL allows hostnames with letters,
	// numbers, dots, hyphens and underscores
	if len(host) > 253 {
		return false
	}
	for _, char := range host {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '-' || char == '_') {
			return false
		}
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") ||
		strings.HasPrefix(host, "-") || strings.HasSuffix(host, "-") {
		return false
	}
	return true
}

//go:build windows

package config

// mapEnvKey translates the Unix names used in shipped config files to their
// Windows counterparts.
func mapEnvKey(key string) string {
	switch key {
	case "HOSTNAME":
		return "COMPUTERNAME"
	case "HOME":
		return "USERPROFILE"
	}
	return key
}

package utils

import "strings"

// ShortName extracts the last segment after "/" from an ARN or path.
// For assumed-role ARNs that is the session name, for IAM user ARNs
// the user name. Returns the input unchanged if no "/" is found.
func ShortName(arn string) string {
	if parts := strings.Split(arn, "/"); len(parts) > 1 {
		return parts[len(parts)-1]
	}
	return arn
}

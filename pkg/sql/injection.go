// Package sql screens request values that end up as bound query parameters.
package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a parameter value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the parameter that failed the check
	ParamValue  string // The value that was checked
}

// CheckParameterForInjection runs libinjection over a request parameter.
// Values are always bound, never interpolated, so a hit is an audit signal
// rather than a reason to reject the request.
//
// Returns nil if no injection pattern is detected.
//
// Example:
//
//	result := CheckParameterForInjection("id", "u1' OR '1'='1")
//	// result.IsSQLi == true
//	// result.ParamName == "id"
func CheckParameterForInjection(paramName, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
		ParamValue:  value,
	}
}

// CheckAllParameters returns a result for every parameter that matched an injection pattern.
func CheckAllParameters(params map[string]string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range params {
		if result := CheckParameterForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}

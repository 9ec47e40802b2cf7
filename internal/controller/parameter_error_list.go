package controller

import (
	"strconv"
	"strings"

	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
)

// ParameterErrorList contains a list of human-readable errors about parameters.
type ParameterErrorList []string

// AppendIfEmptyOrBlankSpaces appends the error message specified if `str` is empty or contains only blank spaces.
//
// Parameters:
//
//	the string to be checked
//	the error message to append
//
// Returns:
//
//	the trimmed string
func (pel *ParameterErrorList) AppendIfEmptyOrBlankSpaces(str string, errMsg string) string {
	if str = strings.TrimSpace(str); str == "" {
		*pel = append(*pel, errMsg)
	}

	return str
}

// AppendIfEmpty appends the error message specified if `str` is empty. `str` is returned unchanged, for values that
// must reach their consumer byte for byte, such as key derivation inputs.
func (pel *ParameterErrorList) AppendIfEmpty(str string, errMsg string) string {
	if str == "" {
		*pel = append(*pel, errMsg)
	}

	return str
}

// AppendIfNotCapability appends the error message specified if `str` is not "read" or "write".
//
// Parameters:
//
//	the string to be checked
//	the error message to append
//
// Returns:
//
//	the parsed capability or 0 if there's error
func (pel *ParameterErrorList) AppendIfNotCapability(str string, errMsg string) permission.Capability {
	capability, err := permission.ParseCapability(str)
	if err != nil {
		*pel = append(*pel, errMsg)
	}

	return capability
}

// AppendIfNotPhase appends the error message specified if `str` is not "requested" or "granted".
func (pel *ParameterErrorList) AppendIfNotPhase(str string, errMsg string) permission.Phase {
	phase, err := permission.ParsePhase(str)
	if err != nil {
		*pel = append(*pel, errMsg)
	}

	return phase
}

// AppendIfNotBool appends the error message specified if `str` is neither empty nor a bool.
//
// Returns:
//
//	the parsed bool or false if it's empty or can't be parsed
func (pel *ParameterErrorList) AppendIfNotBool(str string, errMsg string) bool {
	if str == "" {
		return false
	}

	boolResult, err := strconv.ParseBool(str)
	if err != nil {
		*pel = append(*pel, errMsg)
	}

	return boolResult
}

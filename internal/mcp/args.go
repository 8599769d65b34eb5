package mcp

import (
	"fmt"
	"math"
)

// parseStringArg extracts a string argument from an MCP arguments map.
// Returns an error if the argument is required but missing or invalid.
func parseStringArg(argsMap map[string]interface{}, key string, required bool) (string, error) {
	val, ok := argsMap[key]
	if !ok {
		if required {
			return "", fmt.Errorf("%s parameter is required", key)
		}
		return "", nil
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}

	if required && str == "" {
		return "", fmt.Errorf("%s cannot be empty", key)
	}

	return str, nil
}

// parseFloatArgPtr extracts an optional number argument as a pointer.
// Returns nil if the argument is missing, and an error if it is not a
// finite non-negative number.
func parseFloatArgPtr(argsMap map[string]interface{}, key string) (*float64, error) {
	val, ok := argsMap[key]
	if !ok {
		return nil, nil
	}

	// MCP sends numbers as float64
	f, ok := val.(float64)
	if !ok {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s must be a non-negative number, got %v", key, f)
	}
	return &f, nil
}

// parseBoolArg extracts a boolean argument from an MCP arguments map.
// Returns defaultVal if the argument is missing or invalid.
func parseBoolArg(argsMap map[string]interface{}, key string, defaultVal bool) bool {
	val, ok := argsMap[key]
	if !ok {
		return defaultVal
	}

	if b, ok := val.(bool); ok {
		return b
	}

	return defaultVal
}

// parseArrayArg extracts a string array argument from an MCP arguments map.
// Returns nil if the argument is missing, or an empty slice if present but empty.
// Filters out non-string elements.
func parseArrayArg(argsMap map[string]interface{}, key string) []string {
	val, ok := argsMap[key]
	if !ok {
		return nil
	}

	arr, ok := val.([]interface{})
	if !ok {
		return nil
	}

	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}
	return result
}

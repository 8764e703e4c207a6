package config

import (
	"strconv"
	"time"
)

func intVal(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func floatVal(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func intSeconds(s string) time.Duration {
	return time.Duration(intVal(s)) * time.Second
}

func intMinutes(s string) time.Duration {
	return time.Duration(intVal(s)) * time.Minute
}

func floatSeconds(s string) time.Duration {
	return time.Duration(floatVal(s) * float64(time.Second))
}

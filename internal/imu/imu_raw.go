// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "fmt"

// IMURaw represents a single raw IMU+mag sample.
type IMURaw struct {
	Source string `json:"source"` // device or side the sample came from

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"` // magnetometer
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

type IMURawSource interface {
	NextRaw() (IMURaw, error)
}

// Vec3 is a 3-axis sample in sensor units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sensor fields of an IMURaw sample that can be calibrated.
const (
	FieldAccel = "accel"
	FieldGyro  = "gyro"
	FieldMag   = "mag"
)

// ValidField reports whether field names a sensor of IMURaw.
func ValidField(field string) bool {
	switch field {
	case FieldAccel, FieldGyro, FieldMag:
		return true
	}
	return false
}

// Axes returns the three axes of one sensor as floats.
func (r IMURaw) Axes(field string) (Vec3, error) {
	switch field {
	case FieldAccel:
		return Vec3{float64(r.Ax), float64(r.Ay), float64(r.Az)}, nil
	case FieldGyro:
		return Vec3{float64(r.Gx), float64(r.Gy), float64(r.Gz)}, nil
	case FieldMag:
		return Vec3{float64(r.Mx), float64(r.My), float64(r.Mz)}, nil
	}
	return Vec3{}, fmt.Errorf("unknown sensor field %q", field)
}

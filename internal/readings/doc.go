// Package readings writes sensor samples to append-only session logs.
//
// Each session produces one tab-separated file under the readings
// directory, named after the session start time. The layout matches the
// files the instrument's bundled recorder produced, so downstream
// analysis scripts keep working.
package readings

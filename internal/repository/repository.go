package repository

import "errors"

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

// ErrDuplicate is returned when an insert or update violates a uniqueness
// constraint (document triple, username). The database constraint is the
// authoritative guard; callers treat this the same as a failed pre-check.
var ErrDuplicate = errors.New("repository: duplicate row")

package oimo

import "github.com/pkg/errors"

var (
	ErrBodyLimit            = errors.New("oimo: rigid body limit reached")
	ErrShapeLimit           = errors.New("oimo: shape limit reached")
	ErrContactPoolExhausted = errors.New("oimo: contact pool exhausted")
	ErrBodyAlreadyAdded     = errors.New("oimo: rigid body already in the world")
	ErrBodyNotFound         = errors.New("oimo: rigid body not in the world")
	ErrShapeNotFound        = errors.New("oimo: shape not in the world")
)

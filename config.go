package oimo

import (
	"io"
	"log"

	"github.com/akmonengine/oimo/broadphase"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_WORKERS = 1

// Pool capacities.
const (
	MAX_RIGID_BODIES   = 32
	MAX_SHAPES         = 64
	MAX_CONTACTS       = 64
	MAX_ISLAND_BODIES  = 32
	MAX_ISLAND_SOLVERS = 64
)

const (
	BroadPhaseBruteForce  = broadphase.TypeBruteForce
	BroadPhaseSpatialHash = broadphase.TypeSpatialHash
)

// StandardGravity is the default gravity of a world, in m/s².
var StandardGravity = mgl64.Vec3{0, -9.80665, 0}

// WorldConfig holds the settings a World is created with.
type WorldConfig struct {
	Gravity mgl64.Vec3

	BroadPhase broadphase.Type
	// HashCellSize and HashTableSize only apply to the spatial hash.
	HashCellSize  float64
	HashTableSize int

	VelocityIterations int
	PositionIterations int

	// Workers > 1 updates contact manifolds in parallel.
	Workers int

	// Logger receives capacity warnings. nil keeps the world silent.
	Logger *log.Logger
}

func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Gravity:            StandardGravity,
		BroadPhase:         BroadPhaseBruteForce,
		HashCellSize:       broadphase.DEFAULT_HASH_CELL_SIZE,
		HashTableSize:      broadphase.DEFAULT_HASH_TABLE_SIZE,
		VelocityIterations: 10,
		PositionIterations: 5,
		Workers:            DEFAULT_WORKERS,
		Logger:             log.New(log.Writer(), "oimo: ", log.LstdFlags),
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

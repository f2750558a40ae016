package main

import (
	"fmt"
	"log"

	"github.com/akmonengine/oimo"
	"github.com/akmonengine/oimo/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// SceneDebugger affiche l'état des contacts à chaque pas
type SceneDebugger struct{}

func (d *SceneDebugger) DebugBody(label string, rb *actor.RigidBody) {
	fmt.Printf("%s:\n", label)
	fmt.Printf("  Position: %v\n", rb.Position())
	fmt.Printf("  Velocity: %v\n", rb.Velocity)
	fmt.Printf("  Angular Velocity: %v (len=%.3f)\n", rb.AngularVelocity, rb.AngularVelocity.Len())
	fmt.Printf("  Sleeping: %v\n", rb.IsSleeping)
}

func (d *SceneDebugger) DebugContact(c *oimo.Contact) {
	m := c.Manifold()
	fmt.Printf("🎯 Contact %d (touching=%v, trigger=%v):\n", c.ID(), c.IsTouching(), c.IsTriggering())
	fmt.Printf("   Normal: %v\n", m.Normal())
	for i, p := range m.Points() {
		fmt.Printf("   Point %d: pos1=%v depth=%.6f impulseN=%.4f\n", i, p.Position1(), p.Depth(), p.NormalImpulse())
	}
}

// SetupScene creates a ground box and a tilted cube above it
func SetupScene() (*oimo.World, *actor.RigidBody, *actor.RigidBody) {
	world := oimo.NewWorld(oimo.DefaultWorldConfig())

	groundConfig := actor.DefaultRigidBodyConfig()
	groundConfig.Type = actor.BodyTypeStatic
	groundConfig.Position = mgl64.Vec3{0, -0.5, 0}
	ground := actor.NewRigidBody(groundConfig)
	groundShape, err := actor.NewShape(actor.DefaultShapeConfig(actor.NewBox(mgl64.Vec3{20, 0.5, 20})))
	if err != nil {
		log.Fatal(err)
	}
	if err := ground.AddShape(groundShape); err != nil {
		log.Fatal(err)
	}

	// Cube incliné qui tombe sur un coin
	cubeConfig := actor.DefaultRigidBodyConfig()
	cubeConfig.Position = mgl64.Vec3{0, 5, 0}
	cubeConfig.Rotation = mgl64.QuatRotate(mgl64.DegToRad(35), mgl64.Vec3{0, 0, 1})
	cube := actor.NewRigidBody(cubeConfig)
	shapeConfig := actor.DefaultShapeConfig(actor.NewBox(mgl64.Vec3{1.5, 1.5, 1.5}))
	shapeConfig.Restitution = 0.5
	cubeShape, err := actor.NewShape(shapeConfig)
	if err != nil {
		log.Fatal(err)
	}
	if err := cube.AddShape(cubeShape); err != nil {
		log.Fatal(err)
	}

	for _, rb := range []*actor.RigidBody{ground, cube} {
		if err := world.AddRigidBody(rb); err != nil {
			log.Fatal(err)
		}
	}

	return world, ground, cube
}

func main() {
	fmt.Println("🧪 Cube incliné sur le sol")
	fmt.Println("==================================================")

	world, ground, cube := SetupScene()
	debugger := &SceneDebugger{}

	fmt.Printf("Configuration initiale:\n")
	fmt.Printf("  Sol: position %v\n", ground.Position())
	fmt.Printf("  Cube: position %v, rotation %v\n", cube.Position(), cube.Orientation())
	fmt.Printf("  Gravité: %v\n", world.Gravity)
	fmt.Println()

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 300

	for step := 0; step < maxSteps; step++ {
		world.Step(dt)

		fmt.Printf("--- ÉTAPE %d ---\n", step+1)
		debugger.DebugBody("Cube", cube)
		for _, c := range world.Contacts() {
			if c.IsTouching() {
				debugger.DebugContact(c)
			}
		}
		for _, event := range world.DrainEvents() {
			fmt.Printf("  Event: %v\n", event.Type())
		}
		fmt.Println()

		if cube.IsSleeping {
			fmt.Printf("Cube endormi après %d étapes\n", step+1)
			break
		}
	}

	fmt.Println("Test terminé!")
}

package main

import (
	"fmt"
	"log"
	"math"

	"github.com/akmonengine/oimo"
	"github.com/akmonengine/oimo/actor"
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	dt           = 1.0 / 60.0
)

func toRaylib(v mgl64.Vec3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X()), Y: float32(v.Y()), Z: float32(v.Z())}
}

func toVec3(v rl.Vector3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

func addBody(world *oimo.World, config actor.RigidBodyConfig, geometry actor.Geometry) *actor.RigidBody {
	rb := actor.NewRigidBody(config)
	shape, err := actor.NewShape(actor.DefaultShapeConfig(geometry))
	if err != nil {
		log.Fatal(err)
	}
	if err := rb.AddShape(shape); err != nil {
		log.Fatal(err)
	}
	if err := world.AddRigidBody(rb); err != nil {
		log.Printf("cannot add body: %v", err)
		return nil
	}
	return rb
}

// buildPyramid stacks boxes on a static ground.
func buildPyramid(world *oimo.World) {
	ground := actor.DefaultRigidBodyConfig()
	ground.Type = actor.BodyTypeStatic
	ground.Position = mgl64.Vec3{0, -0.5, 0}
	addBody(world, ground, actor.NewBox(mgl64.Vec3{10, 0.5, 10}))

	const levels = 5
	for level := 0; level < levels; level++ {
		for i := 0; i < levels-level; i++ {
			config := actor.DefaultRigidBodyConfig()
			config.Position = mgl64.Vec3{
				float64(i) - float64(levels-level-1)/2,
				0.5 + float64(level)*1.0,
				0,
			}
			addBody(world, config, actor.NewBox(mgl64.Vec3{0.48, 0.48, 0.48}))
		}
	}
}

// shoot launches a sphere from the camera toward its target.
func shoot(world *oimo.World, camera rl.Camera3D) {
	from := toVec3(camera.Position)
	dir := toVec3(camera.Target).Sub(from).Normalize()

	config := actor.DefaultRigidBodyConfig()
	config.Position = from
	config.LinearVelocity = dir.Mul(20)
	addBody(world, config, actor.NewSphere(0.4))
}

func drawShape(shape *actor.Shape, color rl.Color) {
	tf := shape.Transform
	angle := 2 * math.Acos(mgl64.Clamp(tf.Rotation.W, -1, 1))
	axis := tf.Rotation.V
	if axis.Len() < 1e-9 {
		axis = mgl64.Vec3{0, 1, 0}
	}

	rl.PushMatrix()
	rl.Translatef(float32(tf.Position.X()), float32(tf.Position.Y()), float32(tf.Position.Z()))
	rl.Rotatef(float32(mgl64.RadToDeg(angle)), float32(axis.X()), float32(axis.Y()), float32(axis.Z()))

	switch g := shape.Geometry.(type) {
	case *actor.Sphere:
		rl.DrawSphere(rl.Vector3Zero(), float32(g.Radius()), color)
	case *actor.Box:
		size := toRaylib(g.HalfExtents().Mul(2))
		rl.DrawCubeV(rl.Vector3Zero(), size, color)
		rl.DrawCubeWiresV(rl.Vector3Zero(), size, rl.DarkGray)
	case *actor.Capsule:
		h := float32(g.HalfHeight())
		rl.DrawCapsule(rl.Vector3{Y: -h}, rl.Vector3{Y: h}, float32(g.Radius()), 8, 8, color)
	}

	rl.PopMatrix()
}

func bodyColor(rb *actor.RigidBody, selected *actor.RigidBody) rl.Color {
	switch {
	case rb == selected:
		return rl.Orange
	case rb.IsStatic():
		return rl.LightGray
	case rb.IsSleeping:
		return rl.SkyBlue
	}
	return rl.Maroon
}

func drawContacts(world *oimo.World) {
	for _, c := range world.Contacts() {
		if !c.IsTouching() {
			continue
		}
		m := c.Manifold()
		for _, p := range m.Points() {
			pos := p.Position1()
			rl.DrawSphere(toRaylib(pos), 0.05, rl.Red)
			rl.DrawLine3D(toRaylib(pos), toRaylib(pos.Add(m.Normal().Mul(0.5))), rl.Red)
		}
	}
}

func main() {
	rl.InitWindow(screenWidth, screenHeight, "oimo - raylib scene")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	camera := rl.Camera3D{
		Position:   rl.Vector3{X: 12, Y: 8, Z: 12},
		Target:     rl.Vector3{X: 0, Y: 2, Z: 0},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	config := oimo.DefaultWorldConfig()
	config.Workers = 4
	world := oimo.NewWorld(config)
	buildPyramid(world)

	var selected *actor.RigidBody
	showContacts := false
	reset := false
	panel := rl.Rectangle{X: 10, Y: 64, Width: 220, Height: 130}

	for !rl.WindowShouldClose() {
		rl.UpdateCamera(&camera, rl.CameraOrbital)

		if rl.IsKeyPressed(rl.KeySpace) {
			shoot(world, camera)
		}
		if rl.IsKeyPressed(rl.KeyC) {
			showContacts = !showContacts
		}
		if rl.IsKeyPressed(rl.KeyR) || reset {
			world = oimo.NewWorld(config)
			buildPyramid(world)
			selected = nil
			reset = false
		}
		// Clicks on the panel do not reach the scene
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !rl.CheckCollisionPointRec(rl.GetMousePosition(), panel) {
			ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), camera)
			begin := toVec3(ray.Position)
			end := begin.Add(toVec3(ray.Direction).Mul(100))
			selected = nil
			if _, shape, ok := world.RayCastClosest(begin, end); ok {
				selected = shape.Body()
				selected.WakeUp()
				selected.ApplyLinearImpulse(mgl64.Vec3{0, 5 * selected.Mass(), 0})
			}
		}

		world.Step(dt)
		world.Events.Flush()

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.BeginMode3D(camera)
		for _, rb := range world.RigidBodies() {
			color := bodyColor(rb, selected)
			for _, shape := range rb.Shapes() {
				drawShape(shape, color)
			}
		}
		if showContacts {
			drawContacts(world)
		}
		rl.DrawGrid(20, 1)
		rl.EndMode3D()

		rl.DrawText(fmt.Sprintf("bodies %d  contacts %d  islands %d",
			world.NumRigidBodies(), world.NumContacts(), world.NumIslands()), 10, 10, 20, rl.DarkGray)
		rl.DrawText("[space] shoot  [click] push  [c] contacts  [r] reset", 10, 34, 20, rl.Gray)
		rl.DrawFPS(screenWidth-100, 10)

		// ===== Panneau de réglages =====
		gui.Panel(panel, "Solver")
		iterations := gui.Slider(rl.Rectangle{X: 90, Y: 96, Width: 100, Height: 16}, "Velocity", fmt.Sprintf("%d", world.VelocityIterations),
			float32(world.VelocityIterations), 1, 30)
		world.VelocityIterations = int(iterations)
		config.VelocityIterations = world.VelocityIterations
		parallel := gui.CheckBox(rl.Rectangle{X: 20, Y: 122, Width: 16, Height: 16}, "Parallel narrowphase", world.Workers > 1)
		world.Workers = 1
		if parallel {
			world.Workers = 4
		}
		config.Workers = world.Workers
		showContacts = gui.CheckBox(rl.Rectangle{X: 20, Y: 146, Width: 16, Height: 16}, "Show contacts", showContacts)
		reset = gui.Button(rl.Rectangle{X: 20, Y: 168, Width: 80, Height: 20}, "Reset")

		rl.EndDrawing()
	}
}

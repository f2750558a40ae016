package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/akmonengine/oimo"
	"github.com/akmonengine/oimo/actor"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)

	// Visible part of the XY plane
	viewWidth  = 24.0
	viewHeight = 16.0

	maxBodies = 24
)

type Scene struct {
	screen        tcell.Screen
	width, height int

	world  *oimo.World
	inZone int
	paused bool

	audioInit bool
	mixer     *beep.Mixer
}

func NewScene() (*Scene, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}

	s := &Scene{
		screen: screen,
		mixer:  &beep.Mixer{},
	}
	s.width, s.height = screen.Size()

	if err := s.initAudio(); err != nil {
		// Non-fatal, the scene runs without sound
		log.Printf("Audio initialization failed: %v", err)
	}
	if err := s.reset(); err != nil {
		screen.Fini()
		return nil, err
	}

	return s, nil
}

func (s *Scene) initAudio() error {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.audioInit = true
	return nil
}

// playImpact plays a short tone, higher and louder for harder impacts.
func (s *Scene) playImpact(impulse float64) {
	if !s.audioInit {
		return
	}

	freq := 220 + math.Min(impulse*40, 660)
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	tone := &effects.Volume{
		Streamer: beep.Take(sampleRate.N(40*time.Millisecond), sine),
		Base:     2,
		Volume:   math.Min(math.Log2(1+impulse), 1) - 3,
	}

	speaker.Lock()
	s.mixer.Add(tone)
	speaker.Unlock()
}

// ========== SCENE ==========

func (s *Scene) reset() error {
	config := oimo.DefaultWorldConfig()
	config.BroadPhase = oimo.BroadPhaseSpatialHash
	config.Logger = nil
	s.world = oimo.NewWorld(config)
	s.inZone = 0

	groundConfig := actor.DefaultRigidBodyConfig()
	groundConfig.Type = actor.BodyTypeStatic
	groundConfig.Position = mgl64.Vec3{0, -0.5, 0}
	if _, err := s.addBody(groundConfig, actor.DefaultShapeConfig(actor.NewBox(mgl64.Vec3{viewWidth / 2, 0.5, 2}))); err != nil {
		return err
	}

	// Zone de détection au milieu de la chute
	zoneConfig := actor.DefaultRigidBodyConfig()
	zoneConfig.Type = actor.BodyTypeStatic
	zoneConfig.Position = mgl64.Vec3{6, 5, 0}
	trigger := actor.DefaultShapeConfig(actor.NewBox(mgl64.Vec3{3, 1, 2}))
	trigger.IsTrigger = true
	if _, err := s.addBody(zoneConfig, trigger); err != nil {
		return err
	}

	for i := 0; i < 6; i++ {
		if err := s.spawn(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) addBody(config actor.RigidBodyConfig, shapeConfig actor.ShapeConfig) (*actor.RigidBody, error) {
	rb := actor.NewRigidBody(config)
	shape, err := actor.NewShape(shapeConfig)
	if err != nil {
		return nil, err
	}
	if err := rb.AddShape(shape); err != nil {
		return nil, err
	}
	if err := s.world.AddRigidBody(rb); err != nil {
		return nil, err
	}
	return rb, nil
}

// spawn drops a random sphere, box or capsule from the top of the view.
func (s *Scene) spawn() error {
	if s.world.NumRigidBodies() >= maxBodies {
		return nil
	}

	config := actor.DefaultRigidBodyConfig()
	config.Position = mgl64.Vec3{rand.Float64()*viewWidth*0.8 - viewWidth*0.4, viewHeight - 2, 0}
	config.Rotation = mgl64.QuatRotate(rand.Float64()*math.Pi, mgl64.Vec3{0, 0, 1})

	var geometry actor.Geometry
	switch rand.Intn(3) {
	case 0:
		geometry = actor.NewSphere(0.5 + rand.Float64()*0.5)
	case 1:
		geometry = actor.NewBox(mgl64.Vec3{0.5 + rand.Float64()*0.5, 0.5, 0.5})
	default:
		geometry = actor.NewCapsule(0.4, 0.5)
	}
	shapeConfig := actor.DefaultShapeConfig(geometry)
	shapeConfig.Restitution = 0.3

	_, err := s.addBody(config, shapeConfig)
	return err
}

func (s *Scene) step(dt float64) {
	s.world.Step(dt)

	for _, event := range s.world.DrainEvents() {
		switch e := event.(type) {
		case oimo.ContactEvent:
			switch e.Kind {
			case oimo.CONTACT_BEGIN:
				s.playImpact(s.impactOf(e.ContactID))
			case oimo.TRIGGER_ENTER:
				s.inZone++
			case oimo.TRIGGER_EXIT:
				s.inZone--
			}
		}
	}
}

// impactOf sums the normal impulses of the contact with the given id.
func (s *Scene) impactOf(id int) float64 {
	for _, c := range s.world.Contacts() {
		if c.ID() != id {
			continue
		}
		impulse := 0.0
		for _, p := range c.Manifold().Points() {
			impulse += p.NormalImpulse()
		}
		return impulse
	}
	return 0
}

// ========== DRAW ==========

// project maps a world point of the XY plane to a terminal cell.
func (s *Scene) project(p mgl64.Vec3) (int, int) {
	x := (p.X() + viewWidth/2) / viewWidth * float64(s.width)
	y := (1 - p.Y()/viewHeight) * float64(s.height-1)
	return int(math.Round(x)), int(math.Round(y))
}

func (s *Scene) unproject(x, y int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(x)/float64(s.width)*viewWidth - viewWidth/2,
		(1 - float64(y)/float64(s.height-1)) * viewHeight,
		0,
	}
}

func (s *Scene) bodyStyle(rb *actor.RigidBody, shape *actor.Shape) (rune, tcell.Style) {
	switch {
	case shape.IsTrigger:
		return '·', tcell.StyleDefault.Foreground(tcell.ColorPurple)
	case rb.IsStatic():
		return '▓', tcell.StyleDefault.Foreground(tcell.ColorWhite)
	case rb.IsSleeping:
		return '█', tcell.StyleDefault.Foreground(tcell.ColorBlue)
	}
	speed := math.Min(rb.Velocity.Len()*20, 255)
	return '█', tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(speed), 255-int32(speed)/2, 0))
}

func (s *Scene) draw() {
	s.screen.Clear()

	for _, rb := range s.world.RigidBodies() {
		for _, shape := range rb.Shapes() {
			glyph, style := s.bodyStyle(rb, shape)
			aabb := shape.AABB()
			x0, y1 := s.project(aabb.Min)
			x1, y0 := s.project(aabb.Max)

			// Only the cells whose center falls inside the geometry are drawn
			for y := max(y0, 0); y <= min(y1, s.height-1); y++ {
				for x := max(x0, 0); x <= min(x1, s.width-1); x++ {
					center := s.unproject(x, y)
					begin := center.Add(mgl64.Vec3{0, 0, 5})
					end := center.Sub(mgl64.Vec3{0, 0, 5})
					if _, ok := actor.RayCast(shape.Geometry, begin, end, shape.Transform); ok {
						s.screen.SetContent(x, y, glyph, nil, style)
					}
				}
			}
		}
	}

	status := fmt.Sprintf(" bodies %d  contacts %d  islands %d  in zone %d  [space] spawn [p] pause [r] reset [esc] quit ",
		s.world.NumRigidBodies(), s.world.NumContacts(), s.world.NumIslands(), s.inZone)
	for i, r := range []rune(status) {
		if i >= s.width {
			break
		}
		s.screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Reverse(true))
	}

	s.screen.Show()
}

// ========== LOOP ==========

func (s *Scene) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}

		var err error
		switch ev.Rune() {
		case ' ':
			err = s.spawn()
		case 'p':
			s.paused = !s.paused
		case 'r':
			err = s.reset()
		case 'q':
			return false
		}
		if err != nil {
			log.Printf("scene: %v", err)
		}

	case *tcell.EventResize:
		s.width, s.height = s.screen.Size()
		s.screen.Sync()
	}

	return true
}

func (s *Scene) run() {
	const dt = 1.0 / 60.0
	ticker := time.NewTicker(16 * time.Millisecond) // ~60 FPS
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- s.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !s.handleInput(ev) {
				return
			}

		case <-ticker.C:
			if !s.paused {
				s.step(dt)
			}
			s.draw()
		}
	}
}

func (s *Scene) cleanup() {
	if s.audioInit {
		speaker.Close()
	}
	s.screen.Fini()
}

func main() {
	scene, err := NewScene()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer scene.cleanup()

	scene.run()
}

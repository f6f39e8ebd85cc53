package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Kobazaaa/Ashen/engine/core"
)

/** @brief The pitch limit in degrees, short of straight up or down. */
const pitchLimit float32 = 89.9

/** @brief The speed multiplier applied while shift is held. */
const sprintFactor float32 = 3

/**
 * @brief The input the camera polls every frame.
 */
type Input interface {
	IsKeyDown(key core.KeyCode) bool
	IsButtonDown(button core.Button) bool
	MousePosition() (float64, float64)
	PreviousMousePosition() (float64, float64)
}

/**
 * @brief A free flying perspective camera. Position and rotation changes only mark
 * the view as dirty; the matrix is rebuilt on the next GetView.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position mgl32.Vec3
	/**
	 * @brief The rotation of this camera in degrees (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use SetEulerRotation() instead.
	 */
	EulerRotation mgl32.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/** @brief The cached view matrix; read it through GetView(). */
	ViewMatrix mgl32.Mat4

	/** @brief Vertical field of view in degrees. */
	Fov    float32
	Near   float32
	Far    float32
	Aspect float32

	Speed       float32
	Sensitivity float32
}

func NewCamera(config core.CameraConfig, aspect float32) *Camera {
	camera := &Camera{
		Fov:         config.Fov,
		Near:        config.Near,
		Far:         config.Far,
		Aspect:      aspect,
		Speed:       config.Speed,
		Sensitivity: config.Sensitivity,
	}
	camera.Reset()
	camera.SetPosition(mgl32.Vec3(config.Position))
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.IsDirty = false
	c.ViewMatrix = mgl32.Ident4()
}

func (c *Camera) GetPosition() mgl32.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetEulerRotation() mgl32.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.EulerRotation[0] = mgl32.Clamp(rotation[0], -pitchLimit, pitchLimit)
	c.IsDirty = true
}

/** @brief Updates the aspect ratio, normally from a swapchain resize. */
func (c *Camera) SetAspect(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

func (c *Camera) rotation() mgl32.Mat4 {
	yaw := mgl32.HomogRotate3DY(mgl32.DegToRad(c.EulerRotation.Y()))
	pitch := mgl32.HomogRotate3DX(mgl32.DegToRad(c.EulerRotation.X()))
	roll := mgl32.HomogRotate3DZ(mgl32.DegToRad(c.EulerRotation.Z()))
	return yaw.Mul4(pitch).Mul4(roll)
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.IsDirty {
		translation := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())
		c.ViewMatrix = translation.Mul4(c.rotation()).Inv()
		c.IsDirty = false
	}
	return c.ViewMatrix
}

/**
 * @brief The perspective projection with Y flipped for Vulkan clip space.
 */
func (c *Camera) GetProjection() mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
	proj[5] *= -1
	return proj
}

func (c *Camera) direction(local mgl32.Vec3) mgl32.Vec3 {
	return c.rotation().Mul4x1(local.Vec4(0)).Vec3()
}

func (c *Camera) Forward() mgl32.Vec3  { return c.direction(mgl32.Vec3{0, 0, -1}) }
func (c *Camera) Backward() mgl32.Vec3 { return c.direction(mgl32.Vec3{0, 0, 1}) }
func (c *Camera) Left() mgl32.Vec3     { return c.direction(mgl32.Vec3{-1, 0, 0}) }
func (c *Camera) Right() mgl32.Vec3    { return c.direction(mgl32.Vec3{1, 0, 0}) }

func (c *Camera) move(direction mgl32.Vec3, amount float32) {
	c.Position = c.Position.Add(direction.Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveForward(amount float32)  { c.move(c.Forward(), amount) }
func (c *Camera) MoveBackward(amount float32) { c.move(c.Backward(), amount) }
func (c *Camera) MoveLeft(amount float32)     { c.move(c.Left(), amount) }
func (c *Camera) MoveRight(amount float32)    { c.move(c.Right(), amount) }
func (c *Camera) MoveUp(amount float32)       { c.move(mgl32.Vec3{0, 1, 0}, amount) }
func (c *Camera) MoveDown(amount float32)     { c.move(mgl32.Vec3{0, -1, 0}, amount) }

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] += amount

	// Clamp to avoid Gimbal lock.
	c.EulerRotation[0] = mgl32.Clamp(c.EulerRotation[0], -pitchLimit, pitchLimit)

	c.IsDirty = true
}

/**
 * @brief Applies one frame of movement and mouse look. E and Q move along world up;
 * the other movement keys follow the view direction. Rotation needs the left button held.
 */
func (c *Camera) Update(input Input, deltaTime float32) {
	speed := c.Speed * deltaTime
	if input.IsKeyDown(core.KEY_LSHIFT) || input.IsKeyDown(core.KEY_RSHIFT) {
		speed *= sprintFactor
	}

	if input.IsKeyDown(core.KEY_W) {
		c.MoveForward(speed)
	}
	if input.IsKeyDown(core.KEY_S) {
		c.MoveBackward(speed)
	}
	if input.IsKeyDown(core.KEY_A) {
		c.MoveLeft(speed)
	}
	if input.IsKeyDown(core.KEY_D) {
		c.MoveRight(speed)
	}
	if input.IsKeyDown(core.KEY_E) {
		c.MoveUp(speed)
	}
	if input.IsKeyDown(core.KEY_Q) {
		c.MoveDown(speed)
	}

	if input.IsButtonDown(core.BUTTON_LEFT) {
		x, y := input.MousePosition()
		px, py := input.PreviousMousePosition()
		c.Yaw(-float32(x-px) * c.Sensitivity)
		c.Pitch(-float32(y-py) * c.Sensitivity)
	}
}

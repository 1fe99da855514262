package robot

// #region command
// Command is a motion primitive understood by the drive train.
type Command string

const (
	Stop         Command = "stop"
	TurnLeft     Command = "turnLeft"
	TurnRight    Command = "turnRight"
	Forward      Command = "forward"
	ForwardLeft  Command = "forwardLeft"
	ForwardRight Command = "forwardRight"
	BackLeft     Command = "backLeft"
	BackRight    Command = "backRight"
	Back         Command = "back"
)

// ValidPower reports whether p is inside [0, 100].
func ValidPower(p int) bool {
	return p >= 0 && p <= 100
}

// WheelPowers maps a command to signed left/right motor power. ok is false
// for unknown commands.
func WheelPowers(cmd Command, power int) (left, right int, ok bool) {
	switch cmd {
	case Stop:
		return 0, 0, true
	case TurnLeft:
		return -power, power, true
	case TurnRight:
		return power, -power, true
	case Forward:
		return power, power, true
	case ForwardLeft:
		return power, 0, true
	case ForwardRight:
		return 0, power, true
	case BackLeft:
		return -power, 0, true
	case BackRight:
		return 0, -power, true
	case Back:
		return -power, -power, true
	}
	return 0, 0, false
}

// #endregion command

// #region wheel
// Wheel identifies one side of the differential drive.
type Wheel int

const (
	LeftWheel Wheel = iota
	RightWheel
)

// #endregion wheel

// #region driver
// Driver is the actuator and sensor surface a task talks to.
// Execute silently ignores power outside [0, 100] and unknown commands.
type Driver interface {
	Execute(cmd Command, power int)
	Ultrasonic() int
	Bumpers() (left, right bool)
	RotationCount(w Wheel) int
	ResetRotationCount(w Wheel)
}

// #endregion driver

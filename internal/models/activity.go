package models

// ActivityKind is a tracked user-activity signal forwarded by the client.
type ActivityKind string

const (
	ActivityPointer  ActivityKind = "pointer"
	ActivityKeyboard ActivityKind = "keyboard"
	ActivityScroll   ActivityKind = "scroll"
	ActivityTouch    ActivityKind = "touch"
)

// SaveTrigger names what caused a flush.
type SaveTrigger string

const (
	TriggerInterval   SaveTrigger = "interval"
	TriggerIdle       SaveTrigger = "idle"
	TriggerVisibility SaveTrigger = "visibility"
	TriggerUnload     SaveTrigger = "unload"
	TriggerManual     SaveTrigger = "manual"
)

// SaveTarget reports where a flush landed.
type SaveTarget string

const (
	SavedRemote    SaveTarget = "remote"
	SavedLocalOnly SaveTarget = "local_only"
	SaveSkipped    SaveTarget = "skipped"
)

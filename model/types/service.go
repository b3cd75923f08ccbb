package types

// Service describes a named activity service. Every external collaborator
// (decision agent, bank lookup, notification webhook) is registered under a
// stable name so that recorded activity results can be matched back to the
// call-site on replay.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

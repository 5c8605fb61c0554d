package kvmutex

import (
	"os"
	"strconv"

	"github.com/google/uuid"
)

// UUIDOwner returns a random token, unique per Lock call.
func UUIDOwner() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ProcessOwner returns the process id. Every lock taken by this process
// shares the token, so any goroutine of the process can unlock it.
func ProcessOwner() (string, error) {
	return strconv.Itoa(os.Getpid()), nil
}

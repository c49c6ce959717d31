//go:build !linux

package parproc

// PinToCPU is a no-op outside Linux.
func PinToCPU(cpu int) error { return nil }

func workerCPU(id int) (int, error) { return id, nil }

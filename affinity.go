//go:build linux

package parproc

import (
	"golang.org/x/sys/unix"
)

// PinToCPU restricts the calling OS thread to a single CPU.
// The caller must hold runtime.LockOSThread.
func PinToCPU(cpu int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}

// workerCPU picks the CPU for worker id from the CPUs this process may
// run on, so pinning works under a restricted cpuset (containers,
// taskset). Workers wrap around the allowed set.
func workerCPU(id int) (int, error) {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		return 0, err
	}
	n := allowed.Count()
	if n == 0 {
		return id, nil
	}
	want := id % n
	for cpu := 0; ; cpu++ {
		if !allowed.IsSet(cpu) {
			continue
		}
		if want == 0 {
			return cpu, nil
		}
		want--
	}
}

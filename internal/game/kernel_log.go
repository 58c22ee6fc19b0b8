package game

// kernelLog is a fixed-size ring of notebook lines. When full, the oldest
// line is overwritten. It is guarded by the owning session's lock.
type kernelLog struct {
	lines []string
	head  int // write position
	full  bool
}

func newKernelLog(size int) *kernelLog {
	if size <= 0 {
		size = kernelLogLimit
	}
	return &kernelLog{lines: make([]string, size)}
}

func (k *kernelLog) add(line string) {
	k.lines[k.head] = line
	k.head = (k.head + 1) % len(k.lines)
	if k.head == 0 {
		k.full = true
	}
}

// snapshot returns the lines oldest first.
func (k *kernelLog) snapshot() []string {
	if !k.full {
		return append([]string(nil), k.lines[:k.head]...)
	}
	out := make([]string, 0, len(k.lines))
	out = append(out, k.lines[k.head:]...)
	return append(out, k.lines[:k.head]...)
}

func (k *kernelLog) len() int {
	if k.full {
		return len(k.lines)
	}
	return k.head
}

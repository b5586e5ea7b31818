package errors

import "fmt"

// Constructors for the process/memory emulator core. Kept in this package so
// every subsystem reports failures through the same StandardError shape.

func ConfigInvalid(field string, reason string) *StandardError {
	return NewStandardError(CategoryValidation, "CONFIG_INVALID",
		fmt.Sprintf("invalid configuration field %q: %s", field, reason),
		map[string]interface{}{"field": field, "reason": reason})
}

func MemoryAccessViolation(pid uint64, addr uint32, memoryRequired uint32) *StandardError {
	return NewStandardError(CategoryMemory, "ACCESS_VIOLATION",
		fmt.Sprintf("process %d: 2-byte access at address 0x%04X does not fit in [0, %d)", pid, addr, memoryRequired),
		map[string]interface{}{"pid": pid, "address": addr, "memory_required": memoryRequired})
}

func MemoryPressure(pid uint64) *StandardError {
	return NewStandardError(CategoryMemory, "MEMORY_PRESSURE",
		fmt.Sprintf("process %d: no frame available and residency budget exhausted", pid),
		map[string]interface{}{"pid": pid})
}

func BackingStoreIO(op string, cause error) *StandardError {
	se := NewStandardError(CategorySystem, "BACKING_STORE_IO",
		fmt.Sprintf("backing store %s failed: %v", op, cause),
		map[string]interface{}{"op": op})
	se.Context["cause"] = cause
	return se
}

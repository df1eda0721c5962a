package defs

/// Pid_t identifies a process table slot.
type Pid_t int

/// Tid_t identifies a thread within a process. This kernel gives every
/// process exactly one thread (spec.md's Non-goals exclude a shared-address-
/// space thread API), so Tid_t and Pid_t are always numerically equal for a
/// process's sole thread, but are kept distinct types.
type Tid_t int

// Package repository defines the data-access interfaces and the entities
// they exchange. Implementations live under internal/store/adapters; services
// depend only on these interfaces so the memory and postgres drivers stay
// interchangeable.
package repository

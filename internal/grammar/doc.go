// Package grammar provides the read-only Slice syntax tree consumed by the
// C# code generators.
//
// This package contains type definitions and lookups only. The front end
// builds these values; every other internal package borrows them and never
// mutates them. grammar imports nothing internal.
//
// Key design constraints:
//   - Entity is a sealed sum type over Struct, Class, Exception, Enum and Interface
//   - Type references are resolved to scoped identifiers by the front end
//   - Inheritance is walked through the Definitions arena, never through pointers
//   - All JSON tags use snake_case
package grammar

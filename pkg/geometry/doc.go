// Package geometry defines the CSG data model: primitive bodies, zones
// built from intersected and subtracted operands, regions as unions of
// zones, the registry that owns them, and the body store used to collapse
// geometrically identical bodies onto one canonical instance.
//
// Bodies are shared by reference. Zones and regions own their operand
// lists; the normalization passes always build new zones rather than
// editing their input.
package geometry

package remap

// Shape is the member shape an annotation element expects its target
// strings to have.
type Shape int

const (
	// ShapeAny accepts method or field targets.
	ShapeAny Shape = iota
	// ShapeMethod requires a method target.
	ShapeMethod
	// ShapeField requires a field target. A method-shaped value in a
	// ShapeField element is a fatal mismatch.
	ShapeField
)

// Rules names the framework annotations whose string values carry
// member targets. Marker is the class-level annotation that declares
// the patch target class; its first class value (or "targets" string)
// becomes the implied owner for owner-implicit method targets in the
// rest of the class. Elements maps annotation type descriptors to the
// element names holding target strings and the shape each expects.
// Strings in elements not listed here are still inspected, permissively
// and with ShapeAny, whenever the class carries the marker.
type Rules struct {
	Marker   string
	Elements map[string]map[string]Shape
}

// DefaultRules covers the Sponge Mixin annotation set.
func DefaultRules() Rules {
	return Rules{
		Marker: "Lorg/spongepowered/asm/mixin/Mixin;",
		Elements: map[string]map[string]Shape{
			"Lorg/spongepowered/asm/mixin/injection/Inject;": {
				"method": ShapeMethod,
			},
			"Lorg/spongepowered/asm/mixin/injection/Redirect;": {
				"method": ShapeMethod,
			},
			"Lorg/spongepowered/asm/mixin/injection/ModifyArg;": {
				"method": ShapeMethod,
			},
			"Lorg/spongepowered/asm/mixin/injection/ModifyVariable;": {
				"method": ShapeMethod,
			},
			"Lorg/spongepowered/asm/mixin/injection/ModifyConstant;": {
				"method": ShapeMethod,
			},
			"Lorg/spongepowered/asm/mixin/injection/At;": {
				"target": ShapeAny,
			},
			"Lorg/spongepowered/asm/mixin/gen/Accessor;": {
				"value": ShapeField,
			},
			"Lorg/spongepowered/asm/mixin/gen/Invoker;": {
				"value": ShapeMethod,
			},
		},
	}
}

// shapeFor returns the expected shape for an element's target strings
// and whether the element is explicitly listed by the rules.
func (r Rules) shapeFor(annType, element string) (Shape, bool) {
	if elems, ok := r.Elements[annType]; ok {
		if shape, ok := elems[element]; ok {
			return shape, true
		}
	}
	return ShapeAny, false
}

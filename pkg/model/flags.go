package model

// PolyFlags describe how a surface is drawn and whether it occludes.
type PolyFlags uint32

const (
	PolyInvisible        PolyFlags = 1 << iota // never drawn
	PolyMasked                                 // texel alpha 0 is a hole
	PolyTranslucent                            // added to what is behind it
	PolyNotSolid                               // does not block light or sight
	PolySemiSolid                              // solid for collision only; never claims pixels
	PolyPortal                                 // joins two zones
	PolyTwoSided                               // visible from both sides
	PolyFakeBackdrop                           // shows the sky backdrop
	PolySmallWavy                              // small texture ripple
	PolyBigWavy                                // large texture ripple
	PolyCloudWavy                              // slow drifting sky distortion
	PolyWaterWavy                              // water surface distortion
	PolyAutoUPan                               // texture scrolls in U
	PolyAutoVPan                               // texture scrolls in V
	PolyUnlit                                  // drawn at full brightness
	PolyHighShadowDetail                       // light mesh at double density
	PolyLowShadowDetail                        // light mesh at half density
	PolySpecialLit                             // lit only by special lights
	PolyDirtyShadows                           // experimental shadow noise, ignored
)

// PolyNoOcclude is the set of flags whose surfaces do not remove pixels
// from the span buffers.
const PolyNoOcclude = PolyMasked | PolyTranslucent | PolyNotSolid | PolySemiSolid | PolyInvisible

// PolyWavy is the set of texture distortion flags.
const PolyWavy = PolySmallWavy | PolyBigWavy | PolyCloudWavy | PolyWaterWavy

// Has reports whether every flag in mask is set.
func (f PolyFlags) Has(mask PolyFlags) bool { return f&mask == mask }

// Any reports whether any flag in mask is set.
func (f PolyFlags) Any(mask PolyFlags) bool { return f&mask != 0 }

// Occludes reports whether the surface claims the pixels it covers.
func (f PolyFlags) Occludes() bool { return f&(PolyNoOcclude|PolyPortal) == 0 }

// NodeFlags are per-node visibility results cached between frames.
type NodeFlags uint32

const (
	// NodePolyOccluded: the node's own polygons drew nothing last frame;
	// LastStartY and LastEndY hold the rows they covered.
	NodePolyOccluded NodeFlags = 1 << iota
	// NodeAllOccluded: nothing in the node's subtree drew last frame.
	NodeAllOccluded
)

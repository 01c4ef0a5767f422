// Package pools provides object pooling for reducing GC pressure.
//
// Frames are encoded once per tick for every network sink, so the scratch
// buffers they are encoded into are recycled by size class instead of being
// reallocated each frame.
package pools

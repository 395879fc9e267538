package axle

import (
	"reflect"
	"unsafe"
)

// zeroSized is the shared backing location handed out for zero-size
// components.
var zeroSized struct{}

// column is the type-erased storage for one component type within one
// archetype: a flat byte arena of cells, one per row, each holding a single
// component value.
//
// A column never tracks occupancy. The owning archetype's high-water mark and
// free list are authoritative, and every method here trusts the caller to
// respect them: write on an occupied cell leaks the old value, dispose on an
// unoccupied cell double-disposes. The archetype discharges those rules.
type column struct {
	info ComponentTypeInfo
	data []byte
}

func newColumn(info ComponentTypeInfo, capacityRows int) column {
	var data []byte
	if info.size > 0 && capacityRows > 0 {
		data = make([]byte, 0, capacityRows*int(info.size))
	}
	return column{info: info, data: data}
}

// rows returns the number of cells currently backed by the arena.
func (c *column) rows() int {
	if c.info.size == 0 {
		return -1 // unbounded; zero-size cells need no backing
	}
	return len(c.data) / int(c.info.size)
}

// extend grows the arena by n cells without initialising them.
func (c *column) extend(n int) {
	if c.info.size == 0 {
		return
	}
	c.data = extendByteSlice(c.data, n*int(c.info.size))
}

// ptr returns the address of the cell at row. Valid until the arena grows.
func (c *column) ptr(row uint32) unsafe.Pointer {
	if c.info.size == 0 {
		return unsafe.Pointer(&zeroSized)
	}
	return unsafe.Pointer(&c.data[uintptr(row)*c.info.size])
}

// base returns the address of cell zero, or nil for an empty arena.
func (c *column) base() unsafe.Pointer {
	if c.info.size == 0 {
		return unsafe.Pointer(&zeroSized)
	}
	if len(c.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&c.data[0])
}

// push appends one new occupied cell holding the value at src.
func (c *column) push(src unsafe.Pointer) {
	c.extend(1)
	c.write(uint32(c.rows()-1), src)
}

// write overwrites the unoccupied cell at row with the value at src.
// Components are stored as raw bytes: they should be plain value types, and
// anything a pointer field references must stay reachable from outside the
// world.
func (c *column) write(row uint32, src unsafe.Pointer) {
	if c.info.size == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(c.ptr(row)), c.info.size)
	copy(dst, unsafe.Slice((*byte)(src), c.info.size))
}

// readOut copies the cell at row out as an ownership transfer: the cell is
// left unoccupied and its Dispose, if any, becomes the caller's burden.
func (c *column) readOut(row uint32) any {
	return reflect.NewAt(c.info.typ, c.ptr(row)).Elem().Interface()
}

// dispose runs the component's Dispose at row, leaving the cell unoccupied.
func (c *column) dispose(row uint32) {
	if !c.info.disposable {
		return
	}
	v := reflect.NewAt(c.info.typ, c.ptr(row))
	if d, ok := v.Interface().(Disposer); ok {
		d.Dispose()
		return
	}
	if d, ok := v.Elem().Interface().(Disposer); ok {
		d.Dispose()
	}
}

// disposeReleaseExcept disposes every occupied cell and releases the arena.
// Called exactly once, from the archetype's teardown; rows in unoccupied are
// already disposed and must not be disposed again.
func (c *column) disposeReleaseExcept(highWater uint32, unoccupied map[uint32]struct{}) {
	if c.info.disposable {
		for row := uint32(0); row < highWater; row++ {
			if _, free := unoccupied[row]; free {
				continue
			}
			c.dispose(row)
		}
	}
	c.data = nil
}

/*
   MediaDrive - removable media resolution for PC emulators
   Copyright (c) 2025, Alexander Vollschwitz

   This file is part of MediaDrive.

   MediaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   MediaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with MediaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package util

import (
	"fmt"
	"sort"
)

// Annotations attaches loosely typed metadata to entities such as directory
// entries or mounted media, e.g. file attributes, short names, or the rule that
// classified an image.
type Annotations map[string]*Annotation

//
func (a *Annotations) Annotate(key string, value interface{}) *Annotation {
	if *a == nil {
		*a = make(Annotations)
	}
	ret := NewAnnotation(key, value)
	(*a)[key] = ret
	return ret
}

//
func (a Annotations) HasAnnotation(key string) bool {
	_, ok := a[key]
	return ok
}

// GetAnnotation returns the annotation for key, or an empty annotation if
// there is none, so that callers can chain accessors without nil checks.
func (a Annotations) GetAnnotation(key string) *Annotation {
	if ret, ok := a[key]; ok {
		return ret
	}
	return NewAnnotation(key, nil)
}

//
func (a Annotations) Keys() []string {
	ret := make([]string, 0, len(a))
	for k := range a {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

//
func NewAnnotation(key string, value interface{}) *Annotation {
	return &Annotation{key: key, value: value}
}

//
type Annotation struct {
	key   string
	value interface{}
}

//
func (a *Annotation) Key() string {
	return a.key
}

//
func (a *Annotation) Value() interface{} {
	return a.value
}

//
func (a *Annotation) IsBool() bool {
	_, ok := a.value.(bool)
	return ok
}

//
func (a *Annotation) Bool() bool {
	if v, ok := a.value.(bool); ok {
		return v
	}
	return false
}

//
func (a *Annotation) IsInt() bool {
	_, ok := a.value.(int)
	return ok
}

//
func (a *Annotation) Int() int {
	if v, ok := a.value.(int); ok {
		return v
	}
	return 0
}

//
func (a *Annotation) IsString() bool {
	_, ok := a.value.(string)
	return ok
}

// String returns the annotation value formatted for display. Nil values render
// as empty string.
func (a *Annotation) String() string {
	switch v := a.value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

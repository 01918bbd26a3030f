package jsonx

import (
	"github.com/sirupsen/logrus"
)

// Normalize rewrites known oracle deviations from the expected schema in
// place and returns the object. Two fixes are applied: a top-level "folders"
// array is converted to the name-keyed map form, and "subfolders" keys are
// folded into "folders" at every level. When a level carries both keys the
// maps are merged, with "folders" entries winning on name conflicts.
func Normalize(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	if arr, ok := obj["folders"].([]any); ok {
		logrus.Warn("oracle returned 'folders' as an array, converting to map form")
		obj["folders"] = folderListToMap(arr)
	}
	foldSubfolders(obj)
	return obj
}

// folderListToMap converts [{folder_name, description, subfolders?, files?}]
// into {name: {description, folders?, files?}}, recursing to any depth.
func folderListToMap(items []any) map[string]any {
	out := make(map[string]any, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["folder_name"].(string)
		if name == "" {
			name, _ = entry["name"].(string)
		}
		if name == "" {
			continue
		}
		folder := map[string]any{}
		if desc, ok := entry["description"].(string); ok {
			folder["description"] = desc
		}
		if purpose, ok := entry["purpose"].(string); ok {
			folder["purpose"] = purpose
		}
		if sub, ok := entry["subfolders"].([]any); ok {
			folder["folders"] = folderListToMap(sub)
		} else if sub, ok := entry["folders"].([]any); ok {
			folder["folders"] = folderListToMap(sub)
		} else if sub, ok := entry["folders"].(map[string]any); ok {
			folder["folders"] = sub
		}
		if files, ok := entry["files"]; ok {
			folder["files"] = files
		}
		out[name] = folder
	}
	return out
}

// foldSubfolders renames "subfolders" to "folders" recursively. If both
// keys exist the entries are merged; a "folders" entry keeps its value when
// the same name appears under "subfolders".
func foldSubfolders(obj map[string]any) {
	if sub, ok := obj["subfolders"]; ok {
		subMap := asFolderMap(sub)
		if existing, ok := obj["folders"].(map[string]any); ok {
			merged := 0
			for name, v := range subMap {
				if _, dup := existing[name]; !dup {
					existing[name] = v
					merged++
				}
			}
			if merged > 0 {
				logrus.Warnf("merged %d entries from 'subfolders' into 'folders'", merged)
			}
		} else if subMap != nil {
			obj["folders"] = subMap
		}
		delete(obj, "subfolders")
	}

	for _, v := range obj {
		switch child := v.(type) {
		case map[string]any:
			foldSubfolders(child)
		case []any:
			for _, item := range child {
				if m, ok := item.(map[string]any); ok {
					foldSubfolders(m)
				}
			}
		}
	}
}

func asFolderMap(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case []any:
		return folderListToMap(val)
	}
	return nil
}

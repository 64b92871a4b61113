package firebase

import (
	"fmt"
	"path"
	"time"

	"google.golang.org/api/firestore/v1"

	"todoapp/internal/platform"
)

// toValue encodes a Go value as a Firestore value. Zero values are
// force-sent so false and "" are stored rather than dropped.
func toValue(v any) firestore.Value {
	switch x := v.(type) {
	case nil:
		return firestore.Value{NullValue: "NULL_VALUE"}
	case string:
		return firestore.Value{StringValue: x, ForceSendFields: []string{"StringValue"}}
	case bool:
		return firestore.Value{BooleanValue: x, ForceSendFields: []string{"BooleanValue"}}
	case int:
		return firestore.Value{IntegerValue: int64(x), ForceSendFields: []string{"IntegerValue"}}
	case int64:
		return firestore.Value{IntegerValue: x, ForceSendFields: []string{"IntegerValue"}}
	case float64:
		return firestore.Value{DoubleValue: x, ForceSendFields: []string{"DoubleValue"}}
	case time.Time:
		return firestore.Value{TimestampValue: x.UTC().Format(time.RFC3339Nano)}
	default:
		return firestore.Value{StringValue: fmt.Sprint(x), ForceSendFields: []string{"StringValue"}}
	}
}

// fromValue decodes a Firestore value. The decoded struct cannot tell ""
// from false from 0, so a value with every field zero decodes to nil and
// the typed Document accessors return the zero value of whatever type the
// caller asks for.
func fromValue(v firestore.Value) any {
	switch {
	case v.TimestampValue != "":
		t, err := time.Parse(time.RFC3339Nano, v.TimestampValue)
		if err != nil {
			return v.TimestampValue
		}
		return t
	case v.StringValue != "":
		return v.StringValue
	case v.BooleanValue:
		return true
	case v.IntegerValue != 0:
		return v.IntegerValue
	case v.DoubleValue != 0:
		return v.DoubleValue
	case v.ReferenceValue != "":
		return v.ReferenceValue
	default:
		return nil
	}
}

func toFields(f platform.Fields) map[string]firestore.Value {
	out := make(map[string]firestore.Value, len(f))
	for k, v := range f {
		out[k] = toValue(v)
	}
	return out
}

func fromDocument(doc *firestore.Document) platform.Document {
	fields := make(platform.Fields, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = fromValue(v)
	}
	return platform.Document{ID: path.Base(doc.Name), Fields: fields}
}

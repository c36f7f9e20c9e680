package registry

// ChangeEvent carries one property-level change on a model's best session:
// which model, which property, and its previous and new value. Listeners
// registered under the wildcard property name "ANY" receive every
// ChangeEvent regardless of property.
type ChangeEvent struct {
	Model    *Model
	Property string
	Previous any
	Next     any
}

// AnyProperty is the wildcard property name that receives all changes.
const AnyProperty = "ANY"

// TagsProperty is the synthetic property name MergeTags emits changes
// under.
const TagsProperty = "tags"

// urlsync.go — Attribute selection <-> query string.
package compose

import (
	"maps"
	"net/url"
	"strconv"

	"github.com/xob0t/GoStorefront/pkg/schema"
	"github.com/xob0t/GoStorefront/pkg/selection"
)

// SellerParam seeds the selected seller. It is ignored when a document
// declares an attribute with the same key.
const SellerParam = "seller"

// EncodeSelection writes one parameter per selected declared attribute.
func EncodeSelection(doc *schema.Document, selected map[string]string) url.Values {
	q := url.Values{}
	for _, a := range doc.Attributes {
		if v, ok := selected[a.Key]; ok && a.Has(v) {
			q.Set(a.Key, v)
		}
	}
	return q
}

// DecodeSelection reads the declared attributes out of q. Unknown keys and
// undeclared values are dropped.
func DecodeSelection(doc *schema.Document, q url.Values) map[string]string {
	out := make(map[string]string)
	for _, a := range doc.Attributes {
		if v := q.Get(a.Key); v != "" && a.Has(v) {
			out[a.Key] = v
		}
	}
	return out
}

// DecodeSeller reads the seller parameter, if the document offers that seller.
func DecodeSeller(doc *schema.Document, q url.Values) (int64, bool) {
	if _, shadowed := doc.Attribute(SellerParam); shadowed {
		return 0, false
	}
	id, err := strconv.ParseInt(q.Get(SellerParam), 10, 64)
	if err != nil {
		return 0, false
	}
	if _, ok := doc.Seller(id); !ok {
		return 0, false
	}
	return id, true
}

// MergeQuery returns current with the attribute and seller parameters
// replaced by those of st. Every other parameter is preserved.
func MergeQuery(current url.Values, doc *schema.Document, st selection.State) url.Values {
	q := maps.Clone(current)
	if q == nil {
		q = url.Values{}
	}
	for _, a := range doc.Attributes {
		q.Del(a.Key)
	}
	for k, v := range EncodeSelection(doc, st.Selected) {
		q[k] = v
	}

	if _, shadowed := doc.Attribute(SellerParam); !shadowed {
		q.Del(SellerParam)
		if st.HasSeller && doc.Rules.AllowMultiSeller {
			q.Set(SellerParam, strconv.FormatInt(st.SellerID, 10))
		}
	}
	return q
}

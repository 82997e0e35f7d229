// example.go — Sample document for `storefront init` and tests.
package schema

// ExampleJSON returns a sample catalog document carrying both page and modal
// layouts.
func ExampleJSON() string {
	return `{
  "schemaVersion": "1.0.0",
  "product": {
    "id": 1001,
    "slug": "classic-tee",
    "title": "Classic Tee",
    "brand": "Stencil Supply",
    "description": "Heavyweight cotton t-shirt with a relaxed fit.",
    "price": 25.00,
    "discountPrice": 22.50,
    "stock": 8,
    "currency": "USD",
    "images": [],
    "badges": ["new"],
    "rating": 4.4,
    "reviewCount": 2,
    "warrantyMonths": 6
  },
  "layouts": {
    "page": [
      { "block": "gallery", "position": "main", "order": 10 },
      { "block": "title", "position": "sidebar", "order": 10 },
      { "block": "price", "position": "sidebar", "order": 20 },
      { "block": "badges", "position": "sidebar", "order": 15 },
      { "block": "size_selector", "position": "sidebar", "order": 30 },
      { "block": "seller_selector", "position": "sidebar", "order": 40 },
      { "block": "stock_warning", "position": "sidebar", "order": 50 },
      { "block": "add_to_cart", "position": "sidebar", "order": 60 },
      { "block": "campaign_info", "position": "sidebar", "order": 70 },
      { "block": "warranty_info", "position": "sidebar", "order": 80 },
      { "block": "description", "position": "bottom", "order": 10 },
      { "block": "reviews", "position": "bottom", "order": 20, "config": { "limit": 5 } },
      { "block": "related_products", "position": "bottom", "order": 30, "config": { "limit": 4 } }
    ],
    "modal": [
      { "block": "title", "order": 10 },
      { "block": "price", "order": 20 },
      { "block": "variant_selector", "order": 30 },
      { "block": "stock_warning", "order": 40 },
      { "block": "add_to_cart", "order": 50 }
    ]
  },
  "attributes": [
    {
      "key": "size",
      "label": "Size",
      "values": [
        { "value": "S", "label": "Small" },
        { "value": "M", "label": "Medium" },
        { "value": "L", "label": "Large" }
      ]
    },
    {
      "key": "color",
      "label": "Color",
      "values": [
        { "value": "red", "label": "Red", "colorHex": "#c0392b" },
        { "value": "blue", "label": "Blue", "colorHex": "#2c3e90" }
      ]
    }
  ],
  "combinations": [
    { "id": 1, "sku": "TEE-S-RED", "attributes": { "size": "S", "color": "red" }, "price": 24.00, "stock": 3 },
    { "id": 2, "sku": "TEE-M-RED", "attributes": { "size": "M", "color": "red" }, "price": 24.00, "stock": 0 },
    { "id": 3, "sku": "TEE-S-BLUE", "attributes": { "size": "S", "color": "blue" }, "price": 26.00, "stock": 5 }
  ],
  "sellers": [
    { "id": 7, "vendorName": "Stencil Supply", "vendorSlug": "stencil-supply", "price": 23.00, "stock": 12, "rating": 4.8, "freeShipping": true },
    { "id": 9, "vendorName": "Corner Shop", "vendorSlug": "corner-shop", "price": 24.00, "discountPrice": 21.00, "stock": 2, "rating": 4.1, "freeShipping": false, "shippingThreshold": 50 }
  ],
  "rules": {
    "requireVariantBeforeAddToCart": true,
    "allowMultiSeller": true,
    "lowStockThreshold": 3,
    "showWarrantyInfo": true
  },
  "campaigns": [
    { "id": 1, "title": "Buy 2, save 10%", "details": "Applied at checkout." }
  ],
  "reviews": [
    { "author": "Ana", "rating": 5, "comment": "Great fit." },
    { "author": "Ben", "rating": 4, "comment": "Runs slightly large." }
  ],
  "related": [
    { "slug": "classic-hoodie", "title": "Classic Hoodie", "price": 55.00 }
  ]
}`
}

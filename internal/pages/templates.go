package pages

import (
	"embed"
	"io/fs"
)

//go:embed assets
var assetFiles embed.FS

// assets serves the bundled scripts under /assets/.
var assets, _ = fs.Sub(assetFiles, "assets")

// Markup the dialog manager and interpreter build from.
const (
	dialogMarkup = `<div id="dialog-container" class="modal hide"><div class="hd"><a class="close" href="#">&times;</a></div><div class="bd"></div></div>`
	maskMarkup   = `<div id="screen-mask" style="display: none"></div>`
	errorMarkup  = `<p>Sorry, something went wrong. Please try again.</p>`
)

// layoutTemplate wraps every page. The context bundle rides in a JSON
// script block the runtime reads once at load.
const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="{{.AppScript}}"></script>
</head>
<body>
  <div class="user-navigation"><a href="/bag">Bag (<span class="item_count">{{.ItemCount}}</span>)</a></div>
  {{template "content" .}}
  <div id="social-footer-con"></div>
  <script id="context-bundle" type="application/json">{{.BundleJSON}}</script>
</body>
</html>{{end}}`

const homeTemplate = `{{define "content"}}
  <ul class="products">
  {{range .Products}}
    <li class="product" data-product-id="{{.ID}}">
      <span class="name">{{.Name}}</span>
      {{if .InStock}}<a href="#" class="btn shopping-bag-item-add" data-product-id="{{.ID}}">Add to bag</a>
      {{else}}<a href="#" class="btn shopping-bag-waitlist" data-product-id="{{.ID}}">Join waitlist</a>{{end}}
    </li>
  {{end}}
  </ul>
  <form class="form-horizontal ajax_request_form" action="/orders" method="post">
    <div class="alert alert-error hide"><a class="close" data-dismiss="alert">&times;</a><p></p></div>
    <div class="alert alert-success hide"><a class="close" data-dismiss="alert">&times;</a><p>Order saved.</p></div>
    <div class="control-group"><input type="text" name="order[first_name]" data-validate="required"><span class="help hide">Required</span></div>
    <div class="control-group"><input type="text" name="order[last_name]" data-validate="required"><span class="help hide">Required</span></div>
    <div class="control-group"><input type="text" name="order[address]"></div>
    <div class="control-group"><input type="text" name="order[city]"></div>
    <div class="control-group"><input type="text" name="order[zip]"></div>
    {{range .Measurements}}<div class="control-group"><input type="number" min="0" name="order[{{.}}]"></div>
    {{end}}
    <div class="control-group"><button type="submit" class="btn">Place order</button></div>
  </form>
{{end}}`

const bagTemplate = `{{define "content"}}
  <ul class="shopping-bag">
  {{range .Items}}
    <li class="shopping-bag-item" data-item-key="{{.Key}}">
      <span class="product">{{.ProductID}}</span>
      <a href="#" class="btn shopping-bag-item-remove">Remove</a>
    </li>
  {{else}}
    <li class="empty">Your bag is empty.</li>
  {{end}}
  </ul>
{{end}}`

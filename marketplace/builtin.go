package marketplace

// Builtin returns the compiled-in marketplace table. Order matters: the
// first fragment match wins, so site-specific entries come before generic
// ones. Selector lists are alternatives tried left to right; retailers
// A/B-test their markup, so each feature carries several candidates.
func Builtin() []Config {
	return []Config{
		{
			DomainFragment: "amazon",
			Selectors: Selectors{
				ProductName: "#productTitle, .a-size-large.product-title-word-break",
				Price:       ".a-price .a-offscreen, .a-price-whole, .a-offscreen",
				BuyButton:   "#buy-now-button, #submit.a-button-input, .a-button-input[name='submit.buy-now'], input[name='submit.buy-now']",
			},
		},
		{
			DomainFragment: "flipkart",
			Selectors: Selectors{
				ProductName: ".B_NuCI, ._30jeq3, .G6XhRU",
				Price:       "._30jeq3._16Jk6d, ._30jeq3, .dyC4hf",
				BuyButton:   "._2KpZ6l._2U9uOA._3v1-ww, ._2KpZ6l, button._2KpZ6l, ._2KpZ6l._2U9uOA.ihZ75k",
			},
		},
		{
			DomainFragment: "ebay.com",
			Selectors: Selectors{
				ProductName: ".x-item-title__mainTitle, .ux-textspans--BOLD",
				Price:       ".x-price-primary .x-bin-price__content, .x-price-primary span",
				BuyButton:   ".x-bin-action__btn, .btn.btn-prim, input[value='Buy It Now']",
			},
		},
		{
			DomainFragment: "walmart.com",
			Selectors: Selectors{
				ProductName: "[data-testid='product-title'], .f3, .w_a9, .prod-ProductTitle",
				Price:       "[data-testid='price-wrap'] .w_Cs, .f4.f3-m, span.w_hLcU",
				BuyButton:   "[data-testid='add-to-cart-btn'], [data-testid='buy-now-btn'], button.button--primary",
			},
		},
		{
			DomainFragment: "etsy.com",
			Selectors: Selectors{
				ProductName: ".wt-text-body-01, .wt-text-heading",
				Price:       ".wt-text-title-03, .wt-text-title-01",
				BuyButton:   ".add-to-cart-form button, .wt-btn--filled, form button[type='submit']",
			},
		},
	}
}
